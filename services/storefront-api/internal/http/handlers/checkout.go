package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"credential-storefront/services/storefront-api/internal/fulfillment"
	"credential-storefront/services/storefront-api/internal/inventory"
	"credential-storefront/services/storefront-api/internal/ledger"
)

// checkoutTimeout bounds the claim and ledger write. The work is detached
// from the client connection so a dropped request cannot cut a claim short.
const checkoutTimeout = 10 * time.Second

const orderIDAttempts = 5

var errOrderIDTaken = errors.New("checkout: no free order id")

type checkoutReq struct {
	// TransactionID is the payment reference typed by the buyer. It is
	// logged for manual reconciliation and not verified.
	TransactionID string `json:"transaction_id" validate:"required,min=5"`
}

type checkoutResp struct {
	OrderID     string   `json:"order_id"`
	Total       string   `json:"total"`
	Credentials []string `json:"credentials"`
}

func (a *API) Checkout(w http.ResponseWriter, r *http.Request) {
	id, err := a.session(r)
	if err != nil {
		a.Log.Error().Err(err).Msg("session lookup failed")
		http.Error(w, "could not check session", http.StatusInternalServerError)
		return
	}
	if id == nil {
		http.Error(w, "sign in to complete your purchase", http.StatusUnauthorized)
		return
	}

	var req checkoutReq
	if !decode(w, r, &req) {
		return
	}
	c, ok := a.openCart(w, r)
	if !ok {
		return
	}
	if c.Empty() {
		http.Error(w, "your cart is empty", http.StatusBadRequest)
		return
	}

	stores := a.storesFor(id)
	orderID, err := a.freshOrderID(r.Context(), stores.Ledger)
	if err != nil {
		a.Log.Error().Err(err).Str("email", id.Email).Msg("order id allocation failed")
		http.Error(w, "could not complete the purchase, please try again", http.StatusInternalServerError)
		return
	}
	log := a.Log.With().
		Str("order_id", orderID).
		Str("email", id.Email).
		Str("transaction_id", req.TransactionID).
		Str("backend", stores.Name).
		Logger()
	log.Info().Msg("checkout started")

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), checkoutTimeout)
	defer cancel()

	res, err := stores.Fulfillment.Fulfill(ctx, fulfillment.Request{
		OrderID:    orderID,
		BuyerEmail: id.Email,
		Lines:      c.Lines(),
		Total:      c.Total(),
	})
	if err != nil {
		var short *inventory.InsufficientStockError
		var lw *fulfillment.LedgerWriteError
		switch {
		case errors.As(err, &short):
			http.Error(w, fmt.Sprintf("not enough stock for %s: try fewer items or contact support", short.Type), http.StatusConflict)
		case errors.As(err, &lw):
			http.Error(w, "your payment was received but the order could not be saved; contact support with order "+orderID, http.StatusInternalServerError)
		case errors.Is(err, fulfillment.ErrInvalidRequest):
			http.Error(w, "invalid order", http.StatusBadRequest)
		default:
			log.Error().Err(err).Msg("checkout failed")
			http.Error(w, "could not complete the purchase, please try again", http.StatusInternalServerError)
		}
		return
	}

	if err := c.Clear(ctx); err != nil {
		log.Warn().Err(err).Msg("cart clear after checkout failed")
	}
	writeJSON(w, http.StatusCreated, checkoutResp{
		OrderID:     res.Order.ID,
		Total:       money(res.Order.Total),
		Credentials: res.Credentials,
	})
}

// freshOrderID draws order ids until one is unknown to the ledger, so a
// collision is caught before any unit is claimed.
func (a *API) freshOrderID(ctx context.Context, l ledger.Ledger) (string, error) {
	gen := a.NewOrderID
	if gen == nil {
		gen = fulfillment.NewOrderID
	}
	for range orderIDAttempts {
		id := gen(a.now())
		_, err := l.Get(ctx, id)
		if errors.Is(err, ledger.ErrNotFound) {
			return id, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", errOrderIDTaken
}
