package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"credential-storefront/shared/pkg/metrics"
)

type Handlers struct {
	Health http.HandlerFunc

	ListProducts http.HandlerFunc
	GetProduct   http.HandlerFunc

	SignUp  http.HandlerFunc
	SignIn  http.HandlerFunc
	SignOut http.HandlerFunc
	Session http.HandlerFunc

	GetCart        http.HandlerFunc
	AddCartItem    http.HandlerFunc
	RemoveCartItem http.HandlerFunc

	Checkout   http.HandlerFunc
	ListOrders http.HandlerFunc
	Receipt    http.HandlerFunc
}

func NewRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(metrics.Middleware("storefront-api"))
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", h.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)

		r.Post("/auth/signup", h.SignUp)
		r.Post("/auth/signin", h.SignIn)
		r.Post("/auth/signout", h.SignOut)
		r.Get("/auth/session", h.Session)

		r.Get("/cart", h.GetCart)
		r.Post("/cart/items", h.AddCartItem)
		r.Delete("/cart/items/{id}", h.RemoveCartItem)

		r.Post("/checkout", h.Checkout)
		r.Get("/orders", h.ListOrders)
		r.Get("/orders/{id}/receipt", h.Receipt)
	})
	return r
}
