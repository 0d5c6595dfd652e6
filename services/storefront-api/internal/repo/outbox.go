package repo

import (
	"context"
	"encoding/json"
)

type OutboxPG struct{}

// Enqueue writes an event into outbox_events through ex. The storefront
// calls it with the pool once the order has committed, so a failed enqueue
// loses the email and never the order.
func (o *OutboxPG) Enqueue(ctx context.Context, ex Execer, eventID, orderID, eventType string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, `
		insert into outbox_events(
			id, order_id, event_type, payload,
			attempts, next_attempt_at, created_at
		)
		values ($1::uuid, $2, $3, $4::jsonb, 0, now(), now())
	`, eventID, orderID, eventType, string(b))
	return err
}
