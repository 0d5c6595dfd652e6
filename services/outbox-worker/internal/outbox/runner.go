package outbox

import (
	"context"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"credential-storefront/services/outbox-worker/internal/metrics"
	"credential-storefront/shared/pkg/rabbit"
)

type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is the part of *pgxpool.Pool the runner needs.
type DB interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Runner moves orders.fulfilled rows from outbox_events onto the broker.
// Rows are locked with skip locked so several runners can share the table.
type Runner struct {
	Log zerolog.Logger
	DB  DB

	Events rabbit.Sink

	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	BackoffMax   time.Duration
	Now          func() time.Time
}

type EventRow struct {
	ID        string
	OrderID   string
	EventType string
	Payload   []byte
	Attempts  int
}

func (r *Runner) Run(ctx context.Context) {
	t := time.NewTicker(r.PollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Log.Info().Msg("outbox runner stopped")
			return
		case <-t.C:
			if _, err := r.Tick(ctx); err != nil {
				r.Log.Error().Err(err).Msg("outbox tick failed")
			}
		}
	}
}

// Tick handles one batch and reports how many rows were published.
func (r *Runner) Tick(ctx context.Context) (int, error) {
	_ = r.updatePending(ctx)

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		select id::text, order_id, event_type, payload::text, attempts
		from outbox_events
		where sent_at is null and next_attempt_at <= now()
		order by created_at
		limit $1
		for update skip locked
	`, r.BatchSize)
	if err != nil {
		return 0, err
	}
	batch, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (EventRow, error) {
		var e EventRow
		var payload string
		err := row.Scan(&e.ID, &e.OrderID, &e.EventType, &payload, &e.Attempts)
		e.Payload = []byte(payload)
		return e, err
	})
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, e := range batch {
		if e.Attempts >= r.MaxAttempts {
			if _, err := tx.Exec(ctx, `update outbox_events set last_error=$2, sent_at=now() where id=$1`, e.ID, "max attempts reached"); err != nil {
				return sent, err
			}
			metrics.OutboxDroppedTotal.Inc()
			r.Log.Warn().Str("id", e.ID).Str("order_id", e.OrderID).Int("attempts", e.Attempts).Msg("outbox drop (max attempts), buyer was not notified")
			continue
		}

		pubCtx, cancel := rabbit.WithTimeout(ctx)
		err := r.Events.Publish(pubCtx, e.EventType, e.Payload, amqp.Table{
			"x-outbox-id": e.ID,
			"x-attempts":  int32(0),
		})
		cancel()

		if err == nil {
			metrics.OutboxSentTotal.Inc()
			if _, err := tx.Exec(ctx, `update outbox_events set sent_at=now(), last_error=null where id=$1`, e.ID); err != nil {
				return sent, err
			}
			sent++
			continue
		}

		metrics.OutboxPublishErrorsTotal.Inc()
		next := r.now().Add(Backoff(e.Attempts+1, r.BackoffMax))
		if _, err2 := tx.Exec(ctx, `
			update outbox_events
			set attempts = attempts + 1,
			    next_attempt_at = $2,
			    last_error = $3
			where id = $1
		`, e.ID, next, err.Error()); err2 != nil {
			return sent, err2
		}
		r.Log.Error().Err(err).Str("id", e.ID).Str("order_id", e.OrderID).Int("attempts", e.Attempts+1).Time("next", next).Msg("publish failed -> retry scheduled")
	}

	return sent, tx.Commit(ctx)
}

func (r *Runner) updatePending(ctx context.Context) error {
	ctx2, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	n, err := Pending(ctx2, r.DB)
	if err != nil {
		return err
	}
	metrics.OutboxPending.Set(float64(n))
	return nil
}

// Pending counts rows not yet published or dropped.
func Pending(ctx context.Context, db Querier) (int, error) {
	var n int
	err := db.QueryRow(ctx, `select count(*) from outbox_events where sent_at is null`).Scan(&n)
	return n, err
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Backoff doubles per attempt from 2s, clamped to [1s, max].
func Backoff(attempt int, max time.Duration) time.Duration {
	sec := math.Pow(2, float64(attempt))
	d := time.Duration(sec) * time.Second
	if d > max {
		return max
	}
	if d < time.Second {
		return time.Second
	}
	return d
}
