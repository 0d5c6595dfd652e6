package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	ErrInvalidQuantity   = errors.New("inventory: quantity must be greater than zero")
	ErrInvalidClaim      = errors.New("inventory: claim needs a product type, buyer email and order id")
	// ErrClaimConflict means the selected rows changed between select and update.
	// The postgres store rolls the whole claim back when it sees it.
	ErrClaimConflict = errors.New("inventory: selected units were claimed concurrently")
)

type ProductType string

const (
	TypeFacebook ProductType = "facebook"
	TypeProxy    ProductType = "proxy"
	TypeTikTok   ProductType = "tiktok"
	TypeEmail    ProductType = "email"
)

func (t ProductType) Valid() bool {
	switch t {
	case TypeFacebook, TypeProxy, TypeTikTok, TypeEmail:
		return true
	}
	return false
}

// InsufficientStockError reports how many unsold units existed when a claim
// was refused. It matches ErrInsufficientStock with errors.Is.
type InsufficientStockError struct {
	Type      ProductType
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("inventory: insufficient stock for %s: requested %d, available %d", e.Type, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Unit is one sellable credential. SoldToEmail and OrderID stay empty until
// the unit is sold and never change afterwards.
type Unit struct {
	ID          string      `json:"id"`
	Type        ProductType `json:"type"`
	Content     string      `json:"content"`
	Sold        bool        `json:"is_sold"`
	SoldToEmail string      `json:"sold_to_email,omitempty"`
	OrderID     string      `json:"order_id,omitempty"`
}

type ClaimRequest struct {
	Type       ProductType
	Quantity   int
	BuyerEmail string
	OrderID    string
}

func (r ClaimRequest) Validate() error {
	if r.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if r.Type == "" || strings.TrimSpace(r.BuyerEmail) == "" || r.OrderID == "" {
		return ErrInvalidClaim
	}
	return nil
}

// Store holds unsold units and hands them out exactly once.
//
// Claim marks exactly req.Quantity unsold units of req.Type as sold to the
// buyer and order, or fails with *InsufficientStockError without touching
// anything. ClaimAll does the same for several requests as a single unit:
// either every request is satisfied or no unit is marked.
type Store interface {
	Claim(ctx context.Context, req ClaimRequest) ([]Unit, error)
	ClaimAll(ctx context.Context, reqs []ClaimRequest) ([][]Unit, error)
	Available(ctx context.Context, t ProductType) (int, error)
}

func Contents(units []Unit) []string {
	out := make([]string, 0, len(units))
	for _, u := range units {
		out = append(out, u.Content)
	}
	return out
}

func IDs(units []Unit) []string {
	out := make([]string, 0, len(units))
	for _, u := range units {
		out = append(out, u.ID)
	}
	return out
}
