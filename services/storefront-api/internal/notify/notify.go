package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"credential-storefront/services/storefront-api/internal/ledger"
)

// CredentialSeparator sits between credentials in the delivery message.
const CredentialSeparator = "\n\n--------------------------------\n\n"

// Notification is the delivery message for one fulfilled order, already
// rendered for the buyer.
type Notification struct {
	BuyerEmail      string
	OrderID         string
	ProductSummary  string
	TotalFormatted  string
	CredentialsText string
	DashboardLink   string
}

// Dispatcher hands a notification to whatever delivers it. Callers treat
// failures as non-fatal.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

func Build(o ledger.Order, publicURL string) Notification {
	parts := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		parts = append(parts, fmt.Sprintf("%dx %s", it.Quantity, it.Name))
	}
	return Notification{
		BuyerEmail:      o.BuyerEmail,
		OrderID:         o.ID,
		ProductSummary:  strings.Join(parts, ", "),
		TotalFormatted:  FormatTotal(o.Total),
		CredentialsText: strings.Join(o.Credentials, CredentialSeparator),
		DashboardLink:   strings.TrimRight(publicURL, "/") + "/dashboard",
	}
}

func FormatTotal(d decimal.Decimal) string {
	return "R$ " + d.StringFixed(2)
}
