package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"credential-storefront/services/storefront-api/internal/catalog"
	"credential-storefront/services/storefront-api/internal/inventory"
)

// KeyPrefix namespaces persisted carts; the full key is "assis_cart:<cart id>".
const KeyPrefix = "assis_cart"

var ErrInvalidCartID = errors.New("cart: cart id is required")

// Line is a snapshot of a product at the moment it was added plus a quantity.
type Line struct {
	ProductID string                `json:"id"`
	Name      string                `json:"name"`
	Type      inventory.ProductType `json:"type"`
	UnitPrice decimal.Decimal       `json:"price"`
	Quantity  int                   `json:"quantity"`
}

func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func Total(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Store persists a cart snapshot under a key.
// Load returns an empty slice, not an error, for a key that was never saved.
type Store interface {
	Load(ctx context.Context, key string) ([]Line, error)
	Save(ctx context.Context, key string, lines []Line) error
	Clear(ctx context.Context, key string) error
}

func Key(cartID string) string {
	return KeyPrefix + ":" + cartID
}

// Session is one client's cart: loaded from the store when opened and written
// back after every mutation.
type Session struct {
	store Store
	key   string
	lines []Line
}

func Open(ctx context.Context, store Store, cartID string) (*Session, error) {
	if cartID == "" {
		return nil, ErrInvalidCartID
	}
	key := Key(cartID)
	lines, err := store.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("cart: load: %w", err)
	}
	return &Session{store: store, key: key, lines: lines}, nil
}

func (s *Session) Lines() []Line {
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *Session) Empty() bool { return len(s.lines) == 0 }

func (s *Session) Total() decimal.Decimal { return Total(s.lines) }

func (s *Session) Count() int {
	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

// Add puts one unit of p in the cart, bumping the quantity when the product is already there.
func (s *Session) Add(ctx context.Context, p catalog.Product) error {
	next := s.Lines()
	found := false
	for i := range next {
		if next[i].ProductID == p.ID {
			next[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		next = append(next, Line{
			ProductID: p.ID,
			Name:      p.Name,
			Type:      p.Type,
			UnitPrice: p.Price,
			Quantity:  1,
		})
	}
	return s.commit(ctx, next)
}

func (s *Session) Remove(ctx context.Context, productID string) error {
	next := make([]Line, 0, len(s.lines))
	for _, l := range s.lines {
		if l.ProductID != productID {
			next = append(next, l)
		}
	}
	return s.commit(ctx, next)
}

func (s *Session) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx, s.key); err != nil {
		return fmt.Errorf("cart: clear: %w", err)
	}
	s.lines = nil
	return nil
}

func (s *Session) commit(ctx context.Context, next []Line) error {
	if err := s.store.Save(ctx, s.key, next); err != nil {
		return fmt.Errorf("cart: save: %w", err)
	}
	s.lines = next
	return nil
}
