package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"credential-storefront/services/storefront-api/internal/inventory"
)

// StockPG is the postgres inventory.Store. Exclusivity comes from row locks:
// units are selected "for update skip locked" and flipped in the same
// transaction, so two transactions never see the same unsold row.
type StockPG struct{ DB DB }

func (s *StockPG) Claim(ctx context.Context, req inventory.ClaimRequest) ([]inventory.Unit, error) {
	out, err := s.ClaimAll(ctx, []inventory.ClaimRequest{req})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (s *StockPG) ClaimAll(ctx context.Context, reqs []inventory.ClaimRequest) ([][]inventory.Unit, error) {
	for _, r := range reqs {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out := make([][]inventory.Unit, 0, len(reqs))
	for _, r := range reqs {
		units, err := claimTx(ctx, tx, r)
		if err != nil {
			return nil, err
		}
		out = append(out, units)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func claimTx(ctx context.Context, tx pgx.Tx, r inventory.ClaimRequest) ([]inventory.Unit, error) {
	rows, err := tx.Query(ctx, `
		select id, content
		from stock
		where type = $1 and is_sold = false
		order by id
		limit $2
		for update skip locked
	`, string(r.Type), r.Quantity)
	if err != nil {
		return nil, err
	}
	units, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (inventory.Unit, error) {
		u := inventory.Unit{Type: r.Type}
		err := row.Scan(&u.ID, &u.Content)
		return u, err
	})
	if err != nil {
		return nil, err
	}
	if len(units) < r.Quantity {
		// skip locked hides rows held by concurrent claims, so the shortage
		// can be spurious while one of them is open. Available reports every
		// unsold row, locked or not.
		var unsold int
		if err := tx.QueryRow(ctx, `select count(*) from stock where type = $1 and is_sold = false`, string(r.Type)).Scan(&unsold); err != nil {
			return nil, err
		}
		return nil, &inventory.InsufficientStockError{Type: r.Type, Requested: r.Quantity, Available: unsold}
	}

	ids := inventory.IDs(units)
	tag, err := tx.Exec(ctx, `
		update stock
		set is_sold = true, sold_to_email = $2, order_id = $3
		where id = any($1) and is_sold = false
	`, ids, r.BuyerEmail, r.OrderID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() != int64(len(ids)) {
		return nil, fmt.Errorf("%w: marked %d of %d %s units", inventory.ErrClaimConflict, tag.RowsAffected(), len(ids), r.Type)
	}

	for i := range units {
		units[i].Sold = true
		units[i].SoldToEmail = r.BuyerEmail
		units[i].OrderID = r.OrderID
	}
	return units, nil
}

func (s *StockPG) Available(ctx context.Context, t inventory.ProductType) (int, error) {
	var n int
	err := s.DB.QueryRow(ctx, `select count(*) from stock where type = $1 and is_sold = false`, string(t)).Scan(&n)
	return n, err
}

// Add inserts unsold units and returns their ids. It is the only write path
// for new stock and is used by the import command.
func (s *StockPG) Add(ctx context.Context, t inventory.ProductType, contents []string) ([]string, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown product type %q", t)
	}
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ids := make([]string, 0, len(contents))
	for _, c := range contents {
		var id string
		if err := tx.QueryRow(ctx, `insert into stock(type, content) values ($1, $2) returning id`, string(t), c).Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}
