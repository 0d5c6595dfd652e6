package rabbit

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeEvents = "storefront.events"
	ExchangeRetry  = "storefront.retry"
	ExchangeDLX    = "storefront.dlx"

	publishTimeout = 5 * time.Second
)

type Conn struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

// Connect dials the broker and opens one channel. The connection is named
// after the service so it can be told apart in the management UI.
func Connect(url, service string) (*Conn, error) {
	props := amqp.NewConnectionProperties()
	props.SetClientConnectionName(service)
	c, err := amqp.DialConfig(url, amqp.Config{Heartbeat: 10 * time.Second, Properties: props})
	if err != nil {
		return nil, err
	}
	ch, err := c.Channel()
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return &Conn{Conn: c, Ch: ch}, nil
}

func (c *Conn) Close() error {
	if c.Ch != nil {
		_ = c.Ch.Close()
	}
	if c.Conn != nil {
		return c.Conn.Close()
	}
	return nil
}

func DeclareBase(ch *amqp.Channel) error {
	for _, name := range []string{ExchangeEvents, ExchangeRetry, ExchangeDLX} {
		if err := ch.ExchangeDeclare(name, "topic", true, false, false, false, nil); err != nil {
			return err
		}
	}
	return nil
}

// Topology describes one consuming service: its work queue bound to Keys on
// the events exchange, a dead-letter queue, and one delay queue per key that
// routes retried messages back after RetryDelay.
type Topology struct {
	Service    string
	Queue      string
	Keys       []string
	RetryDelay time.Duration
	Prefetch   int
}

func (t Topology) DLQKey() string { return t.Service + ".dlq" }

// RetryKey is the routing key RetryOrDLQ uses for a message originally sent with key.
func (t Topology) RetryKey(key string) string { return t.Service + "." + key }

func (t Topology) Declare(ch *amqp.Channel) error {
	if t.Prefetch > 0 {
		if err := ch.Qos(t.Prefetch, 0, false); err != nil {
			return err
		}
	}

	dlq := t.Queue + ".dlq"
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(dlq, t.DLQKey(), ExchangeDLX, false, nil); err != nil {
		return err
	}

	if _, err := ch.QueueDeclare(t.Queue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    ExchangeDLX,
		"x-dead-letter-routing-key": t.DLQKey(),
	}); err != nil {
		return err
	}

	for _, key := range t.Keys {
		if err := ch.QueueBind(t.Queue, key, ExchangeEvents, false, nil); err != nil {
			return err
		}
		if t.RetryDelay <= 0 {
			continue
		}
		// expired messages dead-letter back onto the events exchange with the original key
		delay := t.Service + ".retry." + key
		if _, err := ch.QueueDeclare(delay, true, false, false, false, amqp.Table{
			"x-message-ttl":             int32(t.RetryDelay.Milliseconds()),
			"x-dead-letter-exchange":    ExchangeEvents,
			"x-dead-letter-routing-key": key,
		}); err != nil {
			return err
		}
		if err := ch.QueueBind(delay, t.RetryKey(key), ExchangeRetry, false, nil); err != nil {
			return err
		}
	}
	return nil
}

// Sink is anything that can take a raw message for a routing key.
// *Publisher is the production implementation.
type Sink interface {
	Publish(ctx context.Context, routingKey string, body []byte, headers amqp.Table) error
}

type Publisher struct {
	ch       *amqp.Channel
	exchange string
}

func NewPublisher(ch *amqp.Channel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange}
}

func (p *Publisher) Publish(ctx context.Context, routingKey string, body []byte, headers amqp.Table) error {
	return p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
		Headers:      headers,
		Timestamp:    time.Now(),
	})
}

// Consume starts a manual-ack consumer on queue.
func Consume(ch *amqp.Channel, queue, consumer string) (<-chan amqp.Delivery, error) {
	return ch.Consume(queue, consumer, false, false, false, false, nil)
}

func WithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, publishTimeout)
}

// Attempts reads the x-attempts header regardless of the integer width the
// broker handed back.
func Attempts(h amqp.Table) int32 {
	switch t := h["x-attempts"].(type) {
	case int32:
		return t
	case int64:
		return int32(t)
	case int:
		return int32(t)
	case int16:
		return int32(t)
	case int8:
		return int32(t)
	}
	return 0
}

// RetryOrDLQ acks d and republishes its body with x-attempts bumped: to the
// retry exchange while attempts stay within maxAttempts, to the dlx after.
// A maxAttempts of zero sends the message straight to the dlx.
func RetryOrDLQ(ctx context.Context, d amqp.Delivery, service string, maxAttempts int32, retryPub, dlqPub Sink, dlqKey string) error {
	attempts := Attempts(d.Headers) + 1

	h := make(amqp.Table, len(d.Headers)+1)
	for k, v := range d.Headers {
		h[k] = v
	}
	h["x-attempts"] = attempts

	pubCtx, cancel := WithTimeout(ctx)
	defer cancel()

	_ = d.Ack(false)
	if attempts <= maxAttempts {
		return retryPub.Publish(pubCtx, service+"."+d.RoutingKey, d.Body, h)
	}
	return dlqPub.Publish(pubCtx, dlqKey, d.Body, h)
}
