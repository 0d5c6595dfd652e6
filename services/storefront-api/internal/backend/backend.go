package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"credential-storefront/services/storefront-api/internal/identity"
	"credential-storefront/services/storefront-api/internal/inventory"
	"credential-storefront/services/storefront-api/internal/ledger"
	"credential-storefront/services/storefront-api/internal/memory"
	"credential-storefront/services/storefront-api/internal/notify"
	"credential-storefront/services/storefront-api/internal/repo"
	"credential-storefront/shared/pkg/cache"
)

var ErrNotConfigured = errors.New("backend: postgres dsn not configured")

const (
	NameLive    = "live"
	NameOffline = "offline"
)

// Backend is one complete set of stores the storefront runs against.
type Backend struct {
	Name      string
	Inventory inventory.Store
	Ledger    ledger.Ledger
	Users     identity.UserStore
	Notifier  notify.Dispatcher
}

// Offline keeps everything in process memory. Never-stocked types are
// served from the placeholder pool.
func Offline(log zerolog.Logger) *Backend {
	return &Backend{
		Name:      NameOffline,
		Inventory: memory.NewInventory(memory.PlaceholderCredentials...),
		Ledger:    memory.NewLedger(),
		Users:     memory.NewUsers(),
		Notifier:  notify.LogDispatcher{Log: log},
	}
}

// Live runs on postgres. With rdb set the order listing is cached in redis.
func Live(db repo.DB, rdb *cache.Redis, ordersTTL time.Duration, log zerolog.Logger) *Backend {
	var orders ledger.Ledger = &repo.OrdersPG{DB: db}
	if rdb != nil {
		orders = &repo.OrdersCached{Next: orders, Redis: rdb, TTL: ordersTTL, Log: log}
	}
	return &Backend{
		Name:      NameLive,
		Inventory: &repo.StockPG{DB: db},
		Ledger:    orders,
		Users:     &repo.UsersPG{DB: db},
		Notifier:  &notify.Outbox{DB: db, Outbox: &repo.OutboxPG{}},
	}
}

// Probe connects and pings postgres within timeout. The pool is closed
// again when the ping fails.
func Probe(ctx context.Context, dsn string, timeout time.Duration) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("backend: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("backend: ping: %w", err)
	}
	return pool, nil
}
