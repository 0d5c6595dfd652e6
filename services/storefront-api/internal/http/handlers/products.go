package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"credential-storefront/services/storefront-api/internal/catalog"
)

type productView struct {
	catalog.Product
	Price         string `json:"price"`
	OriginalPrice string `json:"original_price"`
	Stock         int    `json:"stock"`
}

func (a *API) productView(r *http.Request, p catalog.Product) productView {
	id, _ := a.session(r)
	stock, err := a.storesFor(id).Inventory.Available(r.Context(), p.Type)
	if err != nil {
		a.Log.Warn().Err(err).Str("type", string(p.Type)).Msg("stock count failed")
	}
	return productView{
		Product:       p,
		Price:         money(p.Price),
		OriginalPrice: money(p.OriginalPrice),
		Stock:         stock,
	}
}

func (a *API) ListProducts(w http.ResponseWriter, r *http.Request) {
	products := a.Catalog.List()
	out := make([]productView, 0, len(products))
	for _, p := range products {
		out = append(out, a.productView(r, p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := a.Catalog.Get(chi.URLParam(r, "id"))
	if errors.Is(err, catalog.ErrProductNotFound) {
		http.Error(w, "product not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, a.productView(r, p))
}
