package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"credential-storefront/services/storefront-api/internal/cart"
	"credential-storefront/services/storefront-api/internal/catalog"
	"credential-storefront/services/storefront-api/internal/fulfillment"
	"credential-storefront/services/storefront-api/internal/identity"
	"credential-storefront/services/storefront-api/internal/inventory"
	"credential-storefront/services/storefront-api/internal/ledger"
)

// CartHeader carries the client-generated cart id.
const CartHeader = "X-Cart-ID"

var validate = validator.New()

// Stores is what one backend offers the handlers.
type Stores struct {
	Name        string
	Fulfillment *fulfillment.Service
	Inventory   inventory.Store
	Ledger      ledger.Ledger
}

type API struct {
	Log      zerolog.Logger
	Catalog  *catalog.Catalog
	Identity identity.Provider
	Carts    cart.Store
	// Live is nil when the storefront started offline.
	Live    *Stores
	Offline *Stores
	Now     func() time.Time
	// NewOrderID defaults to fulfillment.NewOrderID.
	NewOrderID func(time.Time) string
	// Location dates receipts; nil means UTC.
	Location *time.Location
}

func Health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// storesFor picks the backend a buyer's data lives in: offline identities
// and an offline start both use the in-memory stores.
func (a *API) storesFor(id *identity.Identity) *Stores {
	if a.Live == nil || (id != nil && id.Offline) {
		return a.Offline
	}
	return a.Live
}

func (a *API) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// session resolves the bearer token; nil means anonymous.
func (a *API) session(r *http.Request) (*identity.Identity, error) {
	return a.Identity.CurrentSession(r.Context(), bearer(r))
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if t, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(t)
	}
	return ""
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return false
	}
	if err := validate.Struct(v); err != nil {
		http.Error(w, "invalid payload: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }
