package models

import (
	"time"

	"github.com/google/uuid"
)

const EventOrderFulfilled = "orders.fulfilled"

// OrderFulfilledPayload carries everything the notification sink needs to
// mail the delivered credentials; it is rendered on the storefront side so
// the consumer never has to read the ledger.
type OrderFulfilledPayload struct {
	BuyerEmail      string `json:"buyer_email"`
	ProductSummary  string `json:"product_summary"`
	TotalFormatted  string `json:"total_formatted"`
	CredentialsText string `json:"credentials_text"`
	DashboardLink   string `json:"dashboard_link"`
}

func NewOrderFulfilledEvent(orderID string, p OrderFulfilledPayload) Event[OrderFulfilledPayload] {
	return Event[OrderFulfilledPayload]{
		ID:      uuid.NewString(),
		Type:    EventOrderFulfilled,
		Version: 1,
		Time:    time.Now().UTC(),
		OrderID: orderID,
		Payload: p,
	}
}
