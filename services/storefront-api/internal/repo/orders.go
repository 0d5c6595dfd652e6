package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"credential-storefront/services/storefront-api/internal/ledger"
)

type OrdersPG struct{ DB DB }

const orderColumns = `id, user_email, total::text, items::text, credentials::text, status, created_at`

func (r *OrdersPG) Append(ctx context.Context, o ledger.Order) error {
	if err := o.Validate(); err != nil {
		return err
	}
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	creds, err := json.Marshal(o.Credentials)
	if err != nil {
		return err
	}
	_, err = r.DB.Exec(ctx, `
		insert into orders(id, user_email, total, items, credentials, status, created_at)
		values ($1, $2, $3::numeric, $4::jsonb, $5::jsonb, $6, $7)
	`, o.ID, o.BuyerEmail, o.Total.String(), string(items), string(creds), string(o.Status), o.CreatedAt)
	if isUniqueViolation(err) {
		return ledger.ErrDuplicateOrder
	}
	return err
}

func (r *OrdersPG) ListByBuyer(ctx context.Context, email string) ([]ledger.Order, error) {
	rows, err := r.DB.Query(ctx, `
		select `+orderColumns+`
		from orders
		where user_email = $1
		order by created_at desc, id desc
	`, email)
	if err != nil {
		return nil, err
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ledger.Order, error) {
		return scanOrder(row)
	})
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []ledger.Order{}
	}
	return orders, nil
}

func (r *OrdersPG) Get(ctx context.Context, id string) (ledger.Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `select `+orderColumns+` from orders where id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Order{}, ledger.ErrNotFound
	}
	return o, err
}

func scanOrder(row pgx.Row) (ledger.Order, error) {
	var (
		o                  ledger.Order
		total, items, cred string
		status             string
		createdAt          time.Time
	)
	if err := row.Scan(&o.ID, &o.BuyerEmail, &total, &items, &cred, &status, &createdAt); err != nil {
		return ledger.Order{}, err
	}
	d, err := decimal.NewFromString(total)
	if err != nil {
		return ledger.Order{}, fmt.Errorf("order %s: total %q: %w", o.ID, total, err)
	}
	if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
		return ledger.Order{}, fmt.Errorf("order %s: items: %w", o.ID, err)
	}
	if err := json.Unmarshal([]byte(cred), &o.Credentials); err != nil {
		return ledger.Order{}, fmt.Errorf("order %s: credentials: %w", o.ID, err)
	}
	o.Total = d
	o.Status = ledger.Status(status)
	o.CreatedAt = createdAt
	return o, nil
}
