package receipt

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"credential-storefront/services/storefront-api/internal/ledger"
)

var ErrNoCredentials = errors.New("receipt: order has no credentials")

const footer = "\n\n--- OBRIGADO PELA COMPRA NA ASSIS ADS ---"

// Render produces the plain-text receipt a buyer downloads for an order,
// dated in loc. A nil loc means UTC.
func Render(o ledger.Order, loc *time.Location) ([]byte, error) {
	if len(o.Credentials) == 0 {
		return nil, ErrNoCredentials
	}
	if loc == nil {
		loc = time.UTC
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "--- PEDIDO %s ---\n", o.ID)
	fmt.Fprintf(&b, "DATA: %s\n", o.CreatedAt.In(loc).Format("02/01/2006"))
	fmt.Fprintf(&b, "PRODUTO: %s\n\n", strings.Join(o.Names(), ", "))
	b.WriteString(strings.Join(o.Credentials, "\n\n"))
	b.WriteString(footer)
	return b.Bytes(), nil
}

func FileName(orderID string) string {
	return "assis-ads-pedido-" + orderID + ".txt"
}
