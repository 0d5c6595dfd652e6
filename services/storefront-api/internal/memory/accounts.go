package memory

import (
	"context"
	"sync"
	"time"

	"credential-storefront/services/storefront-api/internal/cart"
	"credential-storefront/services/storefront-api/internal/identity"
)

type Users struct {
	mu      sync.RWMutex
	byEmail map[string]identity.User
}

func NewUsers() *Users {
	return &Users{byEmail: make(map[string]identity.User)}
}

func (s *Users) Create(_ context.Context, u identity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[u.Email]; ok {
		return identity.ErrUserExists
	}
	s.byEmail[u.Email] = u
	return nil
}

func (s *Users) FindByEmail(_ context.Context, email string) (identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byEmail[email]
	if !ok {
		return identity.User{}, identity.ErrUserNotFound
	}
	return u, nil
}

type Revocations struct {
	mu    sync.Mutex
	until map[string]time.Time
	Now   func() time.Time
}

func NewRevocations() *Revocations {
	return &Revocations{until: make(map[string]time.Time), Now: time.Now}
}

func (r *Revocations) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.until[jti] = r.Now().Add(ttl)
	return nil
}

func (r *Revocations) Revoked(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.until[jti]
	if !ok {
		return false, nil
	}
	if !r.Now().Before(exp) {
		delete(r.until, jti)
		return false, nil
	}
	return true, nil
}

// Carts is a cart.Store kept in process memory.
type Carts struct {
	mu    sync.Mutex
	carts map[string][]cart.Line
}

func NewCarts() *Carts {
	return &Carts{carts: make(map[string][]cart.Line)}
}

func (c *Carts) Load(_ context.Context, key string) ([]cart.Line, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]cart.Line{}, c.carts[key]...), nil
}

func (c *Carts) Save(_ context.Context, key string, lines []cart.Line) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(lines) == 0 {
		delete(c.carts, key)
		return nil
	}
	c.carts[key] = append([]cart.Line(nil), lines...)
	return nil
}

func (c *Carts) Clear(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.carts, key)
	return nil
}
