package models

import "time"

const (
	OrderStatusSimulated = "simulated"
	OrderStatusSubmitted = "submitted"
)

// OrderReceipt is what an exchange (or the dry-run wrapper) returns for a market order.
type OrderReceipt struct {
	ID            string         `json:"id,omitempty"`
	ClientOrderID string         `json:"client_order_id,omitempty"`
	Exchange      string         `json:"exchange"`
	Symbol        string         `json:"symbol"`
	Side          Side           `json:"side"`
	Amount        float64        `json:"amount"`
	Status        string         `json:"status"`
	Simulated     bool           `json:"simulated"`
	CreatedAt     time.Time      `json:"created_at"`
	Raw           map[string]any `json:"raw,omitempty"`
}
