package repo

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"credential-storefront/services/storefront-api/internal/ledger"
	"credential-storefront/shared/pkg/cache"
)

// OrdersCached fronts a ledger's per-buyer listing with redis. Snapshots
// are keyed by a per-buyer generation that every Append bumps, so a list
// read that races an Append can only fill a generation nobody reads again.
// Cache failures are logged and never fail the call.
type OrdersCached struct {
	Next  ledger.Ledger
	Redis *cache.Redis
	TTL   time.Duration
	Log   zerolog.Logger
}

// generations outlive every snapshot written under them.
const ordersGenTTL = 24 * time.Hour

func ordersGenKey(email string) string { return "orders:gen:" + email }

func ordersKey(email string, gen int64) string {
	return "orders:" + email + ":" + strconv.FormatInt(gen, 10)
}

func (c *OrdersCached) Append(ctx context.Context, o ledger.Order) error {
	if err := c.Next.Append(ctx, o); err != nil {
		return err
	}
	if _, err := c.Redis.Incr(ctx, ordersGenKey(o.BuyerEmail), max(ordersGenTTL, 2*c.TTL)); err != nil {
		c.Log.Warn().Err(err).Str("email", o.BuyerEmail).Msg("orders cache invalidate failed")
	}
	return nil
}

func (c *OrdersCached) generation(ctx context.Context, email string) (int64, error) {
	raw, err := c.Redis.GetString(ctx, ordersGenKey(email))
	if cache.IsMiss(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}

func (c *OrdersCached) ListByBuyer(ctx context.Context, email string) ([]ledger.Order, error) {
	gen, err := c.generation(ctx, email)
	if err != nil {
		c.Log.Warn().Err(err).Str("email", email).Msg("orders cache read failed")
		return c.Next.ListByBuyer(ctx, email)
	}
	key := ordersKey(email, gen)

	raw, err := c.Redis.GetString(ctx, key)
	if err == nil {
		var orders []ledger.Order
		if err := json.Unmarshal([]byte(raw), &orders); err == nil {
			return orders, nil
		}
	} else if !cache.IsMiss(err) {
		c.Log.Warn().Err(err).Str("email", email).Msg("orders cache read failed")
	}

	orders, err := c.Next.ListByBuyer(ctx, email)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(orders); err == nil {
		if err := c.Redis.SetString(ctx, key, string(b), c.TTL); err != nil {
			c.Log.Warn().Err(err).Str("email", email).Msg("orders cache write failed")
		}
	}
	return orders, nil
}

func (c *OrdersCached) Get(ctx context.Context, id string) (ledger.Order, error) {
	return c.Next.Get(ctx, id)
}
