package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"credential-storefront/services/storefront-api/internal/inventory"
)

var (
	ErrNotFound       = errors.New("ledger: order not found")
	ErrDuplicateOrder = errors.New("ledger: order id already recorded")
	ErrInvalidOrder   = errors.New("ledger: invalid order")
)

type Status string

const (
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
)

// Item is one purchased line as it looked at checkout.
type Item struct {
	ProductID string                `json:"id"`
	Name      string                `json:"name"`
	Type      inventory.ProductType `json:"type"`
	UnitPrice decimal.Decimal       `json:"price"`
	Quantity  int                   `json:"quantity"`
}

// Order is a completed purchase. Items are the cart snapshot taken at
// checkout and Total is the amount charged then; neither is recomputed on read.
type Order struct {
	ID          string          `json:"id"`
	BuyerEmail  string          `json:"user_email"`
	CreatedAt   time.Time       `json:"created_at"`
	Items       []Item          `json:"items"`
	Total       decimal.Decimal `json:"total"`
	Status      Status          `json:"status"`
	Credentials []string        `json:"credentials"`
}

func (o Order) Quantity() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// Validate enforces that a recorded order delivers one credential per unit bought.
func (o Order) Validate() error {
	if o.ID == "" || o.BuyerEmail == "" {
		return fmt.Errorf("%w: id and buyer email are required", ErrInvalidOrder)
	}
	if len(o.Items) == 0 {
		return fmt.Errorf("%w: no items", ErrInvalidOrder)
	}
	if got, want := len(o.Credentials), o.Quantity(); got != want {
		return fmt.Errorf("%w: %d credentials for %d units", ErrInvalidOrder, got, want)
	}
	return nil
}

// Names lists the item names in purchase order.
func (o Order) Names() []string {
	out := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		out = append(out, it.Name)
	}
	return out
}

func (o Order) Clone() Order {
	c := o
	c.Items = append([]Item(nil), o.Items...)
	c.Credentials = append([]string(nil), o.Credentials...)
	return c
}

// Ledger is the append-only order history.
type Ledger interface {
	Append(ctx context.Context, o Order) error
	// ListByBuyer returns the buyer's orders, newest first.
	ListByBuyer(ctx context.Context, email string) ([]Order, error)
	Get(ctx context.Context, id string) (Order, error)
}
