package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"credential-storefront/services/notification-service/internal/inbox"
	"credential-storefront/services/notification-service/internal/mailer"
	"credential-storefront/services/notification-service/internal/worker"
	"credential-storefront/shared/pkg/config"
	"credential-storefront/shared/pkg/logger"
	"credential-storefront/shared/pkg/metrics"
	"credential-storefront/shared/pkg/models"
	"credential-storefront/shared/pkg/rabbit"
)

const service = "notification"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New("notification-service", cfg.Common.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("notification worker stopped with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	rc, err := rabbit.Connect(cfg.Rabbit.URL, "notification-service")
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	topo := rabbit.Topology{
		Service:    service,
		Queue:      "notification.q",
		Keys:       []string{models.EventOrderFulfilled},
		RetryDelay: cfg.Notification.RetryDelay,
		Prefetch:   cfg.Notification.Prefetch,
	}
	if err := rabbit.DeclareBase(rc.Ch); err != nil {
		return err
	}
	if err := topo.Declare(rc.Ch); err != nil {
		return err
	}

	var sender mailer.Sender = mailer.Log{Log: log}
	if cfg.SMTP.Configured() {
		sender = mailer.NewSMTP(cfg.SMTP)
	} else {
		log.Warn().Msg("SMTP_HOST/SMTP_USER not set, delivery mails are only logged")
	}

	c := &worker.Consumer{
		Log:         log,
		Mailer:      sender,
		RetryPub:    rabbit.NewPublisher(rc.Ch, rabbit.ExchangeRetry),
		DLQPub:      rabbit.NewPublisher(rc.Ch, rabbit.ExchangeDLX),
		Service:     service,
		MaxAttempts: cfg.Notification.MaxAttempts,
		DLQKey:      topo.DLQKey(),
	}
	if cfg.Postgres.DSN != "" {
		db, err := pgxpool.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		c.Inbox = &inbox.PG{DB: db}
	} else {
		log.Warn().Msg("no postgres dsn, duplicate deliveries will be mailed again")
	}

	deliveries, err := rabbit.Consume(rc.Ch, topo.Queue, "notification-service")
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx, deliveries)
	}()

	r := chi.NewRouter()
	r.Use(metrics.Middleware("notification-service"))
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{
		Addr:              cfg.NotificationHTTP.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	srvErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("queue", topo.Queue).Msg("notification worker started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err = <-srvErr:
	}

	log.Info().Msg("shutdown")
	cancel()
	shCtx, shCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shCancel()
	_ = srv.Shutdown(shCtx)
	<-done
	return err
}
