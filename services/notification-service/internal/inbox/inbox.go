package inbox

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
)

type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PG records handled event ids in processed_events so a redelivered event
// does not mail the buyer twice.
type PG struct{ DB Execer }

// Claim returns true if the event id was not seen before.
func (p *PG) Claim(ctx context.Context, eventID string) (bool, error) {
	ct, err := p.DB.Exec(ctx, `insert into processed_events(event_id) values ($1) on conflict do nothing`, eventID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// Release forgets a claim so the retried delivery is handled again.
func (p *PG) Release(ctx context.Context, eventID string) error {
	_, err := p.DB.Exec(ctx, `delete from processed_events where event_id = $1`, eventID)
	return err
}
