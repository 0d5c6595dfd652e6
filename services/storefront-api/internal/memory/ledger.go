package memory

import (
	"context"
	"sync"

	"credential-storefront/services/storefront-api/internal/ledger"
)

type Ledger struct {
	mu     sync.RWMutex
	orders []ledger.Order
	byID   map[string]int
}

func NewLedger() *Ledger {
	return &Ledger{byID: make(map[string]int)}
}

func (l *Ledger) Append(_ context.Context, o ledger.Order) error {
	if err := o.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.byID[o.ID]; dup {
		return ledger.ErrDuplicateOrder
	}
	l.byID[o.ID] = len(l.orders)
	l.orders = append(l.orders, o.Clone())
	return nil
}

func (l *Ledger) ListByBuyer(_ context.Context, email string) ([]ledger.Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := []ledger.Order{}
	for i := len(l.orders) - 1; i >= 0; i-- {
		if l.orders[i].BuyerEmail == email {
			out = append(out, l.orders[i].Clone())
		}
	}
	return out, nil
}

func (l *Ledger) Get(_ context.Context, id string) (ledger.Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.byID[id]
	if !ok {
		return ledger.Order{}, ledger.ErrNotFound
	}
	return l.orders[i].Clone(), nil
}
