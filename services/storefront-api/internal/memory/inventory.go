package memory

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"

	"credential-storefront/services/storefront-api/internal/inventory"
)

// PlaceholderCredentials is what the offline store hands out for types that
// were never stocked.
var PlaceholderCredentials = []string{
	"MOCK ACCOUNT | Login: demo_user | Pass: 123 | 2FA: ABC",
	"MOCK ACCOUNT | Login: demo_ads | Pass: 123 | 2FA: XYZ",
}

// UnlimitedStock is what Available reports for a type served from the
// placeholder pool.
const UnlimitedStock = math.MaxInt32

// Inventory is the in-process inventory.Store. Units are claimed in
// insertion order under a single mutex.
//
// With placeholders set, a type that was never stocked is treated as
// unlimited. Each order walks the placeholder pool from its first entry,
// continuing across the order's lines.
type Inventory struct {
	mu           sync.Mutex
	units        []inventory.Unit
	stocked      map[inventory.ProductType]bool
	placeholders []string
	issued       map[string]int
}

func NewInventory(placeholders ...string) *Inventory {
	return &Inventory{
		stocked:      make(map[inventory.ProductType]bool),
		placeholders: placeholders,
		issued:       make(map[string]int),
	}
}

// Stock adds unsold units and returns their ids.
func (m *Inventory) Stock(t inventory.ProductType, contents ...string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(contents))
	for _, c := range contents {
		u := inventory.Unit{ID: uuid.NewString(), Type: t, Content: c}
		m.units = append(m.units, u)
		ids = append(ids, u.ID)
	}
	m.stocked[t] = true
	return ids
}

// Units returns a copy of every unit, sold or not.
func (m *Inventory) Units() []inventory.Unit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]inventory.Unit(nil), m.units...)
}

func (m *Inventory) Claim(ctx context.Context, req inventory.ClaimRequest) ([]inventory.Unit, error) {
	out, err := m.ClaimAll(ctx, []inventory.ClaimRequest{req})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (m *Inventory) ClaimAll(ctx context.Context, reqs []inventory.ClaimRequest) ([][]inventory.Unit, error) {
	for _, r := range reqs {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// pick first, mutate only once every request is satisfiable
	taken := make(map[int]bool)
	picks := make([][]int, len(reqs))
	for i, r := range reqs {
		if m.usePlaceholders(r.Type) {
			continue
		}
		for idx := range m.units {
			if len(picks[i]) == r.Quantity {
				break
			}
			u := m.units[idx]
			if u.Type == r.Type && !u.Sold && !taken[idx] {
				picks[i] = append(picks[i], idx)
				taken[idx] = true
			}
		}
		if len(picks[i]) < r.Quantity {
			return nil, &inventory.InsufficientStockError{
				Type:      r.Type,
				Requested: r.Quantity,
				Available: m.unsold(r.Type),
			}
		}
	}

	out := make([][]inventory.Unit, len(reqs))
	for i, r := range reqs {
		if m.usePlaceholders(r.Type) {
			out[i] = m.placeholderUnits(r)
			continue
		}
		for _, idx := range picks[i] {
			m.units[idx].Sold = true
			m.units[idx].SoldToEmail = r.BuyerEmail
			m.units[idx].OrderID = r.OrderID
			out[i] = append(out[i], m.units[idx])
		}
	}
	return out, nil
}

func (m *Inventory) Available(_ context.Context, t inventory.ProductType) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.usePlaceholders(t) {
		return UnlimitedStock, nil
	}
	return m.unsold(t), nil
}

func (m *Inventory) usePlaceholders(t inventory.ProductType) bool {
	return len(m.placeholders) > 0 && !m.stocked[t]
}

func (m *Inventory) unsold(t inventory.ProductType) int {
	n := 0
	for _, u := range m.units {
		if u.Type == t && !u.Sold {
			n++
		}
	}
	return n
}

func (m *Inventory) placeholderUnits(r inventory.ClaimRequest) []inventory.Unit {
	out := make([]inventory.Unit, 0, r.Quantity)
	for range r.Quantity {
		n := m.issued[r.OrderID]
		m.issued[r.OrderID] = n + 1
		out = append(out, inventory.Unit{
			ID:          fmt.Sprintf("placeholder-%s-%d", r.OrderID, n+1),
			Type:        r.Type,
			Content:     m.placeholders[n%len(m.placeholders)],
			Sold:        true,
			SoldToEmail: r.BuyerEmail,
			OrderID:     r.OrderID,
		})
	}
	return out
}
