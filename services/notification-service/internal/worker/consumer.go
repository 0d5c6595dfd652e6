package worker

import (
	"context"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"credential-storefront/services/notification-service/internal/mailer"
	"credential-storefront/shared/pkg/models"
	"credential-storefront/shared/pkg/rabbit"
)

const sendTimeout = 15 * time.Second

// Inbox deduplicates events by id. Release undoes a Claim after a failed send.
type Inbox interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type Consumer struct {
	Log    zerolog.Logger
	Mailer mailer.Sender
	// Inbox is optional; without it redeliveries are mailed again.
	Inbox Inbox

	RetryPub rabbit.Sink
	DLQPub   rabbit.Sink

	Service     string
	MaxAttempts int
	DLQKey      string
}

func (c *Consumer) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	c.Log.Info().Msg("notification consumer started")
	for {
		select {
		case <-ctx.Done():
			c.Log.Info().Msg("notification consumer stopped")
			return
		case d, ok := <-deliveries:
			if !ok {
				c.Log.Info().Msg("deliveries closed")
				return
			}
			c.Handle(ctx, d)
		}
	}
}

// Handle mails one orders.fulfilled event. Malformed events go straight to
// the dlq; send failures are retried up to MaxAttempts.
func (c *Consumer) Handle(ctx context.Context, d amqp.Delivery) {
	evt, err := models.Decode[models.OrderFulfilledPayload](d.Body)
	if err != nil {
		c.Log.Error().Err(err).Str("rk", d.RoutingKey).Msg("bad json -> dlq")
		_ = rabbit.RetryOrDLQ(ctx, d, c.Service, 0, c.RetryPub, c.DLQPub, c.DLQKey)
		return
	}
	if !evt.Routable() || evt.Payload.BuyerEmail == "" {
		c.Log.Error().Str("rk", d.RoutingKey).Str("order_id", evt.OrderID).Msg("missing order_id/event_id/email -> dlq")
		_ = rabbit.RetryOrDLQ(ctx, d, c.Service, 0, c.RetryPub, c.DLQPub, c.DLQKey)
		return
	}
	if d.RoutingKey != models.EventOrderFulfilled {
		c.Log.Warn().Str("rk", d.RoutingKey).Str("order_id", evt.OrderID).Msg("unexpected routing key -> ack")
		_ = d.Ack(false)
		return
	}

	if c.Inbox != nil {
		fresh, err := c.Inbox.Claim(ctx, evt.ID)
		if err != nil {
			c.Log.Error().Err(err).Str("order_id", evt.OrderID).Msg("inbox claim failed -> retry/dlq")
			_ = rabbit.RetryOrDLQ(ctx, d, c.Service, int32(c.MaxAttempts), c.RetryPub, c.DLQPub, c.DLQKey)
			return
		}
		if !fresh {
			_ = d.Ack(false)
			c.Log.Debug().Str("event_id", evt.ID).Msg("duplicate event ignored")
			return
		}
	}

	msg := mailer.Compose(evt.OrderID, evt.Payload)
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	err = c.Mailer.Send(sendCtx, msg)
	cancel()
	if err != nil && c.Inbox != nil {
		if rerr := c.Inbox.Release(ctx, evt.ID); rerr != nil {
			c.Log.Warn().Err(rerr).Str("event_id", evt.ID).Msg("inbox release failed, retry will be skipped")
		}
	}
	if errors.Is(err, mailer.ErrNoRecipient) {
		c.Log.Error().Err(err).Str("order_id", evt.OrderID).Msg("undeliverable -> dlq")
		_ = rabbit.RetryOrDLQ(ctx, d, c.Service, 0, c.RetryPub, c.DLQPub, c.DLQKey)
		return
	}
	if err != nil {
		c.Log.Error().Err(err).Str("order_id", evt.OrderID).Int32("attempt", rabbit.Attempts(d.Headers)+1).Msg("send failed -> retry/dlq")
		_ = rabbit.RetryOrDLQ(ctx, d, c.Service, int32(c.MaxAttempts), c.RetryPub, c.DLQPub, c.DLQKey)
		return
	}
	_ = d.Ack(false)
	c.Log.Info().Str("order_id", evt.OrderID).Str("email", msg.To).Msg("delivery mail sent")
}
