package models

import (
	"encoding/json"
	"time"
)

// Event is the envelope published on the storefront exchange.
type Event[T any] struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Version int       `json:"version"`
	Time    time.Time `json:"time"`
	OrderID string    `json:"order_id"`
	Payload T         `json:"payload"`
}

// Routable reports whether the envelope carries the ids consumers key on.
func (e Event[T]) Routable() bool {
	return e.ID != "" && e.OrderID != ""
}

// Decode unmarshals a delivery body into an envelope with a typed payload.
func Decode[T any](body []byte) (Event[T], error) {
	var evt Event[T]
	err := json.Unmarshal(body, &evt)
	return evt, err
}
