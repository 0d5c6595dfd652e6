package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credential-storefront/services/storefront-api/internal/cart"
	"credential-storefront/services/storefront-api/internal/identity"
	"credential-storefront/services/storefront-api/internal/memory"
)

func TestUsersCreateAndFind(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUsers()
	u := identity.User{ID: "u1", Email: "a@x.com", Name: "a"}
	require.NoError(t, users.Create(ctx, u))
	assert.ErrorIs(t, users.Create(ctx, u), identity.ErrUserExists)

	got, err := users.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, u, got)

	_, err = users.FindByEmail(ctx, "b@x.com")
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
}

func TestRevocationsExpire(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	r := memory.NewRevocations()
	r.Now = func() time.Time { return now }

	require.NoError(t, r.Revoke(ctx, "jti-1", time.Minute))
	revoked, err := r.Revoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, err = r.Revoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestCartsStore(t *testing.T) {
	ctx := context.Background()
	c := memory.NewCarts()

	lines, err := c.Load(ctx, "assis_cart:1")
	require.NoError(t, err)
	assert.Empty(t, lines)

	require.NoError(t, c.Save(ctx, "assis_cart:1", []cart.Line{{ProductID: "p1", Quantity: 2}}))
	lines, err = c.Load(ctx, "assis_cart:1")
	require.NoError(t, err)
	assert.Equal(t, []cart.Line{{ProductID: "p1", Quantity: 2}}, lines)

	require.NoError(t, c.Clear(ctx, "assis_cart:1"))
	lines, err = c.Load(ctx, "assis_cart:1")
	require.NoError(t, err)
	assert.Empty(t, lines)
}
