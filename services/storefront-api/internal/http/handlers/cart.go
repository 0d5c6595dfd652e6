package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"credential-storefront/services/storefront-api/internal/cart"
	"credential-storefront/services/storefront-api/internal/catalog"
)

type cartLineView struct {
	cart.Line
	UnitPrice string `json:"price"`
	Subtotal  string `json:"subtotal"`
}

type cartView struct {
	Lines []cartLineView `json:"items"`
	Count int            `json:"count"`
	Total string         `json:"total"`
}

func viewCart(s *cart.Session) cartView {
	lines := s.Lines()
	v := cartView{Lines: make([]cartLineView, 0, len(lines)), Count: s.Count(), Total: money(s.Total())}
	for _, l := range lines {
		v.Lines = append(v.Lines, cartLineView{Line: l, UnitPrice: money(l.UnitPrice), Subtotal: money(l.Subtotal())})
	}
	return v
}

func (a *API) openCart(w http.ResponseWriter, r *http.Request) (*cart.Session, bool) {
	s, err := cart.Open(r.Context(), a.Carts, r.Header.Get(CartHeader))
	if errors.Is(err, cart.ErrInvalidCartID) {
		http.Error(w, "missing "+CartHeader+" header", http.StatusBadRequest)
		return nil, false
	}
	if err != nil {
		a.Log.Error().Err(err).Msg("cart load failed")
		http.Error(w, "could not load cart", http.StatusInternalServerError)
		return nil, false
	}
	return s, true
}

func (a *API) GetCart(w http.ResponseWriter, r *http.Request) {
	s, ok := a.openCart(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewCart(s))
}

type addItemReq struct {
	ProductID string `json:"product_id" validate:"required"`
}

func (a *API) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemReq
	if !decode(w, r, &req) {
		return
	}
	p, err := a.Catalog.Get(req.ProductID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		http.Error(w, "product not found", http.StatusNotFound)
		return
	}
	s, ok := a.openCart(w, r)
	if !ok {
		return
	}
	if err := s.Add(r.Context(), p); err != nil {
		a.Log.Error().Err(err).Msg("cart add failed")
		http.Error(w, "could not update cart", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, viewCart(s))
}

func (a *API) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	s, ok := a.openCart(w, r)
	if !ok {
		return
	}
	if err := s.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.Log.Error().Err(err).Msg("cart remove failed")
		http.Error(w, "could not update cart", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, viewCart(s))
}
