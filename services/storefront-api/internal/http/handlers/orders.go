package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"credential-storefront/services/storefront-api/internal/identity"
	"credential-storefront/services/storefront-api/internal/ledger"
	"credential-storefront/services/storefront-api/internal/receipt"
)

type orderView struct {
	ID          string        `json:"id"`
	CreatedAt   time.Time     `json:"created_at"`
	Items       []ledger.Item `json:"items"`
	Total       string        `json:"total"`
	Status      ledger.Status `json:"status"`
	Credentials []string      `json:"credentials"`
}

func (a *API) signedIn(w http.ResponseWriter, r *http.Request) (*identity.Identity, bool) {
	id, err := a.session(r)
	if err != nil {
		a.Log.Error().Err(err).Msg("session lookup failed")
		http.Error(w, "could not check session", http.StatusInternalServerError)
		return nil, false
	}
	if id == nil {
		http.Error(w, "not signed in", http.StatusUnauthorized)
		return nil, false
	}
	return id, true
}

func (a *API) ListOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := a.signedIn(w, r)
	if !ok {
		return
	}
	orders, err := a.storesFor(id).Ledger.ListByBuyer(r.Context(), id.Email)
	if err != nil {
		a.Log.Error().Err(err).Str("email", id.Email).Msg("list orders failed")
		http.Error(w, "could not load your orders", http.StatusInternalServerError)
		return
	}
	out := make([]orderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderView{
			ID:          o.ID,
			CreatedAt:   o.CreatedAt,
			Items:       o.Items,
			Total:       money(o.Total),
			Status:      o.Status,
			Credentials: o.Credentials,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) Receipt(w http.ResponseWriter, r *http.Request) {
	id, ok := a.signedIn(w, r)
	if !ok {
		return
	}
	o, err := a.storesFor(id).Ledger.Get(r.Context(), chi.URLParam(r, "id"))
	// someone else's order is reported as missing
	if errors.Is(err, ledger.ErrNotFound) || (err == nil && o.BuyerEmail != id.Email) {
		http.Error(w, "order not found", http.StatusNotFound)
		return
	}
	if err != nil {
		a.Log.Error().Err(err).Msg("load order failed")
		http.Error(w, "could not load the order", http.StatusInternalServerError)
		return
	}
	body, err := receipt.Render(o, a.Location)
	if errors.Is(err, receipt.ErrNoCredentials) {
		http.Error(w, "this order has no credentials to download", http.StatusNotFound)
		return
	}
	if err != nil {
		a.Log.Error().Err(err).Str("order_id", o.ID).Msg("render receipt failed")
		http.Error(w, "could not build the receipt", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+receipt.FileName(o.ID)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	_, _ = w.Write(body)
}
