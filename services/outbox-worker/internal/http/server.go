package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"credential-storefront/services/outbox-worker/internal/metrics"
	"credential-storefront/services/outbox-worker/internal/outbox"
	sharedmetrics "credential-storefront/shared/pkg/metrics"
)

type Server struct {
	DB outbox.Querier
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(sharedmetrics.Middleware("outbox-worker"))
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/outbox/pending", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		n, err := outbox.Pending(ctx, s.DB)
		if err != nil {
			http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
			return
		}
		metrics.OutboxPending.Set(float64(n))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]int{"pending": n})
	})

	return r
}
