package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credential-storefront/services/storefront-api/internal/catalog"
	"credential-storefront/services/storefront-api/internal/fulfillment"
	httpx "credential-storefront/services/storefront-api/internal/http"
	"credential-storefront/services/storefront-api/internal/http/handlers"
	"credential-storefront/services/storefront-api/internal/identity"
	"credential-storefront/services/storefront-api/internal/inventory"
	"credential-storefront/services/storefront-api/internal/ledger"
	"credential-storefront/services/storefront-api/internal/memory"
	"credential-storefront/services/storefront-api/internal/notify"
)

type storefront struct {
	t      *testing.T
	router http.Handler
	svc    *fulfillment.Service
	stock  *memory.Inventory
	ledger *memory.Ledger
	api    *handlers.API
}

func newStorefront(t *testing.T, facebookUnits ...string) *storefront {
	t.Helper()
	log := zerolog.Nop()
	inv := memory.NewInventory()
	inv.Stock(inventory.TypeFacebook, facebookUnits...)
	orders := memory.NewLedger()
	svc := &fulfillment.Service{
		Inventory: inv,
		Ledger:    orders,
		Notifier:  notify.LogDispatcher{Log: log},
		Log:       log,
		PublicURL: "http://shop.test",
	}
	t.Cleanup(svc.Wait)

	api := &handlers.API{
		Log:     log,
		Catalog: catalog.Default(),
		Identity: &identity.Accounts{
			Users:   memory.NewUsers(),
			Tokens:  identity.NewTokens("test-secret", time.Hour),
			Revoked: memory.NewRevocations(),
			Offline: true,
		},
		Carts:   memory.NewCarts(),
		Offline: &handlers.Stores{Name: "offline", Fulfillment: svc, Inventory: inv, Ledger: orders},
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
	return &storefront{t: t, router: router, svc: svc, stock: inv, ledger: orders, api: api}
}

type call struct {
	method, path string
	body         any
	token        string
	cartID       string
}

func (s *storefront) do(c call) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if c.body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &buf)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.cartID != "" {
		req.Header.Set(handlers.CartHeader, c.cartID)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *storefront) signUp(email string) string {
	s.t.Helper()
	rec := s.do(call{method: http.MethodPost, path: "/api/v1/auth/signup", body: map[string]string{"email": email, "password": "secret1"}})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var sess identity.Session
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &sess))
	return sess.Token
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestPurchaseFlow(t *testing.T) {
	s := newStorefront(t, "fb-1|pass|2fa", "fb-2|pass|2fa")

	products := decodeBody[[]map[string]any](t, s.do(call{method: http.MethodGet, path: "/api/v1/products"}))
	require.Len(t, products, 1)
	assert.Equal(t, "p1", products[0]["id"])
	assert.Equal(t, "70.00", products[0]["price"])
	assert.EqualValues(t, 2, products[0]["stock"])

	token := s.signUp("Buyer@X.com")

	session := decodeBody[identity.Identity](t, s.do(call{method: http.MethodGet, path: "/api/v1/auth/session", token: token}))
	assert.Equal(t, "buyer@x.com", session.Email)
	assert.True(t, session.Offline)

	for range 2 {
		rec := s.do(call{method: http.MethodPost, path: "/api/v1/cart/items", body: map[string]string{"product_id": "p1"}, cartID: "c1"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	cart := decodeBody[map[string]any](t, s.do(call{method: http.MethodGet, path: "/api/v1/cart", cartID: "c1"}))
	assert.EqualValues(t, 2, cart["count"])
	assert.Equal(t, "140.00", cart["total"])

	rec := s.do(call{method: http.MethodPost, path: "/api/v1/checkout", body: map[string]string{"transaction_id": "TX-12345"}, token: token, cartID: "c1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	out := decodeBody[struct {
		OrderID     string   `json:"order_id"`
		Total       string   `json:"total"`
		Credentials []string `json:"credentials"`
	}](t, rec)
	assert.Regexp(t, `^PED-\d+$`, out.OrderID)
	assert.Equal(t, "140.00", out.Total)
	assert.ElementsMatch(t, []string{"fb-1|pass|2fa", "fb-2|pass|2fa"}, out.Credentials)

	cart = decodeBody[map[string]any](t, s.do(call{method: http.MethodGet, path: "/api/v1/cart", cartID: "c1"}))
	assert.EqualValues(t, 0, cart["count"], "cart is emptied after checkout")

	orders := decodeBody[[]map[string]any](t, s.do(call{method: http.MethodGet, path: "/api/v1/orders", token: token}))
	require.Len(t, orders, 1)
	assert.Equal(t, out.OrderID, orders[0]["id"])
	assert.Equal(t, "140.00", orders[0]["total"])
	assert.Equal(t, "completed", orders[0]["status"])

	rec = s.do(call{method: http.MethodGet, path: "/api/v1/orders/" + out.OrderID + "/receipt", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="assis-ads-pedido-`+out.OrderID+`.txt"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "--- PEDIDO "+out.OrderID+" ---\n"))
	assert.Contains(t, rec.Body.String(), "fb-1|pass|2fa")

	other := s.signUp("other@x.com")
	rec = s.do(call{method: http.MethodGet, path: "/api/v1/orders/" + out.OrderID + "/receipt", token: other})
	assert.Equal(t, http.StatusNotFound, rec.Code, "another buyer's order is hidden")

	for _, u := range s.stock.Units() {
		assert.True(t, u.Sold)
		assert.Equal(t, "buyer@x.com", u.SoldToEmail)
		assert.Equal(t, out.OrderID, u.OrderID)
	}
}

func TestCheckoutRequiresSession(t *testing.T) {
	s := newStorefront(t, "fb-1")
	s.do(call{method: http.MethodPost, path: "/api/v1/cart/items", body: map[string]string{"product_id": "p1"}, cartID: "c1"})

	rec := s.do(call{method: http.MethodPost, path: "/api/v1/checkout", body: map[string]string{"transaction_id": "TX-12345"}, cartID: "c1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	n, err := s.stock.Available(t.Context(), inventory.TypeFacebook)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "nothing is claimed without a session")
}

func TestCheckoutShortStockIsConflict(t *testing.T) {
	s := newStorefront(t, "fb-1")
	token := s.signUp("buyer@x.com")
	for range 2 {
		s.do(call{method: http.MethodPost, path: "/api/v1/cart/items", body: map[string]string{"product_id": "p1"}, cartID: "c1"})
	}

	rec := s.do(call{method: http.MethodPost, path: "/api/v1/checkout", body: map[string]string{"transaction_id": "TX-12345"}, token: token, cartID: "c1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "not enough stock for facebook")

	cart := decodeBody[map[string]any](t, s.do(call{method: http.MethodGet, path: "/api/v1/cart", cartID: "c1"}))
	assert.EqualValues(t, 2, cart["count"], "cart is kept when checkout fails")

	orders := decodeBody[[]map[string]any](t, s.do(call{method: http.MethodGet, path: "/api/v1/orders", token: token}))
	assert.Empty(t, orders)
}

func TestCheckoutRedrawsTakenOrderID(t *testing.T) {
	s := newStorefront(t, "fb-1")
	taken := ledger.Order{
		ID: "PED-000001000000001", BuyerEmail: "first@x.com", CreatedAt: time.Now(),
		Items: []ledger.Item{{ProductID: "p1", Name: "Perfil Facebook Aquecido", Type: inventory.TypeFacebook,
			UnitPrice: decimal.RequireFromString("70.00"), Quantity: 1}},
		Total: decimal.RequireFromString("70.00"), Status: ledger.StatusCompleted, Credentials: []string{"old|pass"},
	}
	require.NoError(t, s.ledger.Append(t.Context(), taken))

	ids := []string{taken.ID, "PED-000001000000002"}
	s.api.NewOrderID = func(time.Time) string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	token := s.signUp("buyer@x.com")
	s.do(call{method: http.MethodPost, path: "/api/v1/cart/items", body: map[string]string{"product_id": "p1"}, cartID: "c1"})
	rec := s.do(call{method: http.MethodPost, path: "/api/v1/checkout", body: map[string]string{"transaction_id": "TX-12345"}, token: token, cartID: "c1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	out := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "PED-000001000000002", out["order_id"])

	first, err := s.ledger.Get(t.Context(), taken.ID)
	require.NoError(t, err)
	assert.Equal(t, "first@x.com", first.BuyerEmail)
	assert.Equal(t, []string{"old|pass"}, first.Credentials)
}

func TestCheckoutRejectsBadInput(t *testing.T) {
	s := newStorefront(t, "fb-1")
	token := s.signUp("buyer@x.com")

	rec := s.do(call{method: http.MethodPost, path: "/api/v1/checkout", body: map[string]string{"transaction_id": "TX-12345"}, token: token, cartID: "c1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "your cart is empty")

	s.do(call{method: http.MethodPost, path: "/api/v1/cart/items", body: map[string]string{"product_id": "p1"}, cartID: "c1"})
	rec = s.do(call{method: http.MethodPost, path: "/api/v1/checkout", body: map[string]string{"transaction_id": "TX"}, token: token, cartID: "c1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "transaction id too short")

	rec = s.do(call{method: http.MethodPost, path: "/api/v1/checkout", body: map[string]string{"transaction_id": "TX-12345"}, token: token})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing cart header")
}

func TestCartEndpoints(t *testing.T) {
	s := newStorefront(t)

	rec := s.do(call{method: http.MethodGet, path: "/api/v1/cart"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(call{method: http.MethodPost, path: "/api/v1/cart/items", body: map[string]string{"product_id": "nope"}, cartID: "c1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.do(call{method: http.MethodPost, path: "/api/v1/cart/items", body: map[string]string{"product_id": "p1"}, cartID: "c1"})
	rec = s.do(call{method: http.MethodDelete, path: "/api/v1/cart/items/p1", cartID: "c1"})
	require.Equal(t, http.StatusOK, rec.Code)
	cart := decodeBody[map[string]any](t, rec)
	assert.EqualValues(t, 0, cart["count"])
	assert.Equal(t, "0.00", cart["total"])
}

func TestAuthEndpoints(t *testing.T) {
	s := newStorefront(t)
	token := s.signUp("buyer@x.com")

	rec := s.do(call{method: http.MethodPost, path: "/api/v1/auth/signup", body: map[string]string{"email": "buyer@x.com", "password": "secret1"}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(call{method: http.MethodPost, path: "/api/v1/auth/signin", body: map[string]string{"email": "buyer@x.com", "password": "wrong-pass"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(call{method: http.MethodPost, path: "/api/v1/auth/signup", body: map[string]string{"email": "not-an-email", "password": "secret1"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(call{method: http.MethodPost, path: "/api/v1/auth/signin", body: map[string]string{"email": "buyer@x.com", "password": "secret1"}})
	assert.Equal(t, http.StatusOK, rec.Code)

	s.do(call{method: http.MethodPost, path: "/api/v1/cart/items", body: map[string]string{"product_id": "p1"}, cartID: "c1"})
	rec = s.do(call{method: http.MethodPost, path: "/api/v1/auth/signout", token: token, cartID: "c1"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(call{method: http.MethodGet, path: "/api/v1/auth/session", token: token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	cart := decodeBody[map[string]any](t, s.do(call{method: http.MethodGet, path: "/api/v1/cart", cartID: "c1"}))
	assert.EqualValues(t, 0, cart["count"], "sign-out empties the cart")
}

func TestProductNotFound(t *testing.T) {
	s := newStorefront(t)
	assert.Equal(t, http.StatusNotFound, s.do(call{method: http.MethodGet, path: "/api/v1/products/p404"}).Code)
	assert.Equal(t, http.StatusOK, s.do(call{method: http.MethodGet, path: "/health"}).Code)
}
