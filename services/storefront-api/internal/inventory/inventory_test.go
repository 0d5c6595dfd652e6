package inventory

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClaimRequestValidate(t *testing.T) {
	ok := ClaimRequest{Type: TypeProxy, Quantity: 1, BuyerEmail: "a@b.c", OrderID: "PED-1"}
	assert.NoError(t, ok.Validate())

	zero := ok
	zero.Quantity = 0
	assert.ErrorIs(t, zero.Validate(), ErrInvalidQuantity)

	noEmail := ok
	noEmail.BuyerEmail = "  "
	assert.ErrorIs(t, noEmail.Validate(), ErrInvalidClaim)

	noOrder := ok
	noOrder.OrderID = ""
	assert.ErrorIs(t, noOrder.Validate(), ErrInvalidClaim)
}

func TestInsufficientStockErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("checkout: %w", &InsufficientStockError{Type: TypeTikTok, Requested: 3, Available: 1})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	var short *InsufficientStockError
	assert.True(t, errors.As(err, &short))
	assert.Equal(t, 1, short.Available)
	assert.Contains(t, err.Error(), "requested 3, available 1")
}

func TestProductTypeValid(t *testing.T) {
	for _, pt := range []ProductType{TypeFacebook, TypeProxy, TypeTikTok, TypeEmail} {
		assert.True(t, pt.Valid(), pt)
	}
	assert.False(t, ProductType("instagram").Valid())
}

func TestContentsAndIDsKeepOrder(t *testing.T) {
	units := []Unit{{ID: "b", Content: "two"}, {ID: "a", Content: "one"}}
	assert.Equal(t, []string{"two", "one"}, Contents(units))
	assert.Equal(t, []string{"b", "a"}, IDs(units))
}
