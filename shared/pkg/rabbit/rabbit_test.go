package rabbit

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	key     string
	body    []byte
	headers amqp.Table
}

type fakeSink struct {
	msgs []published
	err  error
}

func (s *fakeSink) Publish(_ context.Context, key string, body []byte, headers amqp.Table) error {
	s.msgs = append(s.msgs, published{key: key, body: body, headers: headers})
	return s.err
}

type fakeAck struct{ acks, nacks int }

func (a *fakeAck) Ack(uint64, bool) error        { a.acks++; return nil }
func (a *fakeAck) Nack(uint64, bool, bool) error { a.nacks++; return nil }
func (a *fakeAck) Reject(uint64, bool) error     { a.nacks++; return nil }

func TestAttempts(t *testing.T) {
	assert.Equal(t, int32(0), Attempts(nil))
	assert.Equal(t, int32(3), Attempts(amqp.Table{"x-attempts": int32(3)}))
	assert.Equal(t, int32(4), Attempts(amqp.Table{"x-attempts": int64(4)}))
	assert.Equal(t, int32(2), Attempts(amqp.Table{"x-attempts": int16(2)}))
	assert.Equal(t, int32(0), Attempts(amqp.Table{"x-attempts": "7"}))
}

func TestRetryOrDLQRetriesUnderLimit(t *testing.T) {
	ack := &fakeAck{}
	retry, dlq := &fakeSink{}, &fakeSink{}
	d := amqp.Delivery{
		Acknowledger: ack,
		RoutingKey:   "orders.fulfilled",
		Body:         []byte(`{}`),
		Headers:      amqp.Table{"x-attempts": int32(1), "x-outbox-id": "e1"},
	}

	require.NoError(t, RetryOrDLQ(context.Background(), d, "notification", 3, retry, dlq, "notification.dlq"))
	assert.Equal(t, 1, ack.acks)
	require.Len(t, retry.msgs, 1)
	assert.Empty(t, dlq.msgs)
	assert.Equal(t, "notification.orders.fulfilled", retry.msgs[0].key)
	assert.Equal(t, int32(2), retry.msgs[0].headers["x-attempts"])
	assert.Equal(t, "e1", retry.msgs[0].headers["x-outbox-id"])
	assert.Equal(t, int32(1), d.Headers["x-attempts"], "original headers untouched")
}

func TestRetryOrDLQDeadLettersAtLimit(t *testing.T) {
	ack := &fakeAck{}
	retry, dlq := &fakeSink{}, &fakeSink{err: errors.New("broker down")}
	d := amqp.Delivery{Acknowledger: ack, RoutingKey: "orders.fulfilled", Headers: amqp.Table{"x-attempts": int32(3)}}

	err := RetryOrDLQ(context.Background(), d, "notification", 3, retry, dlq, "notification.dlq")
	assert.EqualError(t, err, "broker down")
	assert.Equal(t, 1, ack.acks)
	assert.Empty(t, retry.msgs)
	require.Len(t, dlq.msgs, 1)
	assert.Equal(t, "notification.dlq", dlq.msgs[0].key)
}

func TestTopologyKeys(t *testing.T) {
	topo := Topology{Service: "notification", Queue: "notification.q", Keys: []string{"orders.fulfilled"}}
	assert.Equal(t, "notification.dlq", topo.DLQKey())
	assert.Equal(t, "notification.orders.fulfilled", topo.RetryKey("orders.fulfilled"))

	// RetryOrDLQ must land on the key the delay queue is bound to
	retry := &fakeSink{}
	d := amqp.Delivery{Acknowledger: &fakeAck{}, RoutingKey: "orders.fulfilled"}
	require.NoError(t, RetryOrDLQ(context.Background(), d, topo.Service, 1, retry, &fakeSink{}, topo.DLQKey()))
	assert.Equal(t, topo.RetryKey("orders.fulfilled"), retry.msgs[0].key)
}
