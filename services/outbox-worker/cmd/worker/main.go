package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	httpx "credential-storefront/services/outbox-worker/internal/http"
	"credential-storefront/services/outbox-worker/internal/outbox"
	"credential-storefront/shared/pkg/config"
	"credential-storefront/shared/pkg/logger"
	"credential-storefront/shared/pkg/rabbit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New("outbox-worker", cfg.Common.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("outbox worker stopped with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	if err := cfg.RequirePostgres(); err != nil {
		return err
	}

	connCtx, cancel := context.WithTimeout(ctx, cfg.Postgres.ProbeTimeout)
	db, err := pgxpool.New(connCtx, cfg.Postgres.DSN)
	if err == nil {
		err = db.Ping(connCtx)
	}
	cancel()
	if err != nil {
		return err
	}
	defer db.Close()

	rc, err := rabbit.Connect(cfg.Rabbit.URL, "outbox-worker")
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	if err := rabbit.DeclareBase(rc.Ch); err != nil {
		return err
	}

	runner := &outbox.Runner{
		Log:          log,
		DB:           db,
		Events:       rabbit.NewPublisher(rc.Ch, rabbit.ExchangeEvents),
		PollInterval: cfg.Outbox.PollInterval,
		BatchSize:    cfg.Outbox.BatchSize,
		MaxAttempts:  cfg.Outbox.MaxAttempts,
		BackoffMax:   cfg.Outbox.BackoffMax,
	}
	ctx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	done := make(chan struct{})
	go func() {
		defer close(done)
		runner.Run(ctx)
	}()

	srv := &http.Server{
		Addr:              cfg.OutboxHTTP.Addr,
		Handler:           (&httpx.Server{DB: db}).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	srvErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Int("batch", runner.BatchSize).Dur("poll", runner.PollInterval).Msg("outbox-worker started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err = <-srvErr:
	}

	log.Info().Msg("shutdown...")
	cancelRun()
	shCtx, shCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shCancel()
	_ = srv.Shutdown(shCtx)
	<-done
	return err
}
