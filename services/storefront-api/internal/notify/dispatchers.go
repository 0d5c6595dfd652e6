package notify

import (
	"context"

	"github.com/rs/zerolog"

	"credential-storefront/services/storefront-api/internal/repo"
	"credential-storefront/shared/pkg/models"
)

// Outbox records an orders.fulfilled event after the order is in the
// ledger; the outbox worker publishes it and the notification service
// mails it. DB is the pool, not the order's transaction.
type Outbox struct {
	DB     repo.Execer
	Outbox *repo.OutboxPG
}

func (o *Outbox) Dispatch(ctx context.Context, n Notification) error {
	evt := models.NewOrderFulfilledEvent(n.OrderID, models.OrderFulfilledPayload{
		BuyerEmail:      n.BuyerEmail,
		ProductSummary:  n.ProductSummary,
		TotalFormatted:  n.TotalFormatted,
		CredentialsText: n.CredentialsText,
		DashboardLink:   n.DashboardLink,
	})
	return o.Outbox.Enqueue(ctx, o.DB, evt.ID, evt.OrderID, evt.Type, evt)
}

// LogDispatcher only logs; used offline and when no broker is configured.
type LogDispatcher struct{ Log zerolog.Logger }

func (l LogDispatcher) Dispatch(_ context.Context, n Notification) error {
	l.Log.Info().
		Str("order_id", n.OrderID).
		Str("email", n.BuyerEmail).
		Str("products", n.ProductSummary).
		Str("total", n.TotalFormatted).
		Msg("delivery notification (not sent)")
	return nil
}
