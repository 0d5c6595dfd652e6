package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"

	"credential-storefront/services/storefront-api/internal/backend"
	"credential-storefront/services/storefront-api/internal/cart"
	"credential-storefront/services/storefront-api/internal/catalog"
	"credential-storefront/services/storefront-api/internal/fulfillment"
	httpx "credential-storefront/services/storefront-api/internal/http"
	"credential-storefront/services/storefront-api/internal/http/handlers"
	"credential-storefront/services/storefront-api/internal/identity"
	"credential-storefront/services/storefront-api/internal/memory"
	"credential-storefront/services/storefront-api/internal/repo"
	"credential-storefront/shared/pkg/cache"
	"credential-storefront/shared/pkg/config"
	"credential-storefront/shared/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New("storefront-api", cfg.Common.LogLevel)
	if err := cfg.RequireJWTSecret(); err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	loc, err := time.LoadLocation(cfg.Storefront.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.Storefront.Timezone).Msg("config")
	}

	var rdb *cache.Redis
	if cfg.Redis.Addr != "" {
		rdb = cache.New(cfg.Redis.Addr)
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rdb.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, using memory carts and sessions")
			_ = rdb.Close()
			rdb = nil
		}
		cancel()
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	offline := backend.Offline(log)
	var live *backend.Backend
	db, err := backend.Probe(context.Background(), cfg.Postgres.DSN, cfg.Postgres.ProbeTimeout)
	if err != nil {
		log.Warn().Err(err).Msg("postgres unavailable, running offline")
	} else {
		defer db.Close()
		live = backend.Live(db, rdb, cfg.Redis.OrdersTTL, log)
		log.Info().Msg("postgres connected, running live")
	}

	var (
		carts   cart.Store           = memory.NewCarts()
		revoked identity.Revocations = memory.NewRevocations()
	)
	if rdb != nil {
		carts = &cart.RedisStore{Redis: rdb, TTL: cfg.Redis.CartTTL}
		revoked = &repo.SessionsRedis{Redis: rdb}
	}

	tokens := identity.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	local := &identity.Accounts{Users: offline.Users, Tokens: tokens, Revoked: revoked, Offline: true}
	var provider identity.Provider = local
	if live != nil {
		provider = &identity.Degrading{
			Primary: &identity.Accounts{
				Users:   live.Users,
				Tokens:  tokens,
				Revoked: revoked,
				Limiter: identity.NewLimiter(cfg.Auth.AttemptsPerMn, cfg.Auth.AttemptsBurst),
			},
			Fallback: local,
			Log:      log,
		}
	}

	api := &handlers.API{
		Log:      log,
		Catalog:  catalog.Default(),
		Identity: provider,
		Carts:    carts,
		Offline:  stores(offline, cfg, log),
		Location: loc,
	}
	if live != nil {
		api.Live = stores(live, cfg, log)
	}

	router := httpx.NewRouter(&httpx.Handlers{
		Health:         handlers.Health,
		ListProducts:   api.ListProducts,
		GetProduct:     api.GetProduct,
		SignUp:         api.SignUp,
		SignIn:         api.SignIn,
		SignOut:        api.SignOut,
		Session:        api.Session,
		GetCart:        api.GetCart,
		AddCartItem:    api.AddCartItem,
		RemoveCartItem: api.RemoveCartItem,
		Checkout:       api.Checkout,
		ListOrders:     api.ListOrders,
		Receipt:        api.Receipt,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("shutdown...")
	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	_ = srv.Shutdown(shCtx)

	api.Offline.Fulfillment.Wait()
	if api.Live != nil {
		api.Live.Fulfillment.Wait()
	}
}

func stores(b *backend.Backend, cfg config.Config, log zerolog.Logger) *handlers.Stores {
	return &handlers.Stores{
		Name: b.Name,
		Fulfillment: &fulfillment.Service{
			Inventory:     b.Inventory,
			Ledger:        b.Ledger,
			Notifier:      b.Notifier,
			Log:           log.With().Str("backend", b.Name).Logger(),
			AllOrNothing:  cfg.Fulfillment.AllOrNothing,
			PublicURL:     cfg.Storefront.PublicURL,
			NotifyTimeout: cfg.Fulfillment.NotifyTimeout,
		},
		Inventory: b.Inventory,
		Ledger:    b.Ledger,
	}
}
