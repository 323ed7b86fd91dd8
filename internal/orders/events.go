package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderPaid          = "OrderPaid"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventOrderCancelled     = "OrderCancelled"
	EventStockUpdated       = "StockUpdated"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // usually order_id
	Payload       json.RawMessage `json:"payload"`
}

type OrderPaidPayload struct {
	OrderID     string `json:"order_id"`
	UserID      string `json:"user_id"`
	PaymentID   string `json:"payment_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

type OrderStatusChangedPayload struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	UserID      string `json:"user_id"`
	From        Status `json:"from"`
	To          Status `json:"to"`
}

type OrderCancelledPayload struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
	Reason  string `json:"reason"`
}

type StockUpdatedPayload struct {
	ProductID string `json:"product_id"`
	Stock     int    `json:"stock"`
}

// StatusUpdate is the single read-model snapshot for an order's status. The
// status cache and the realtime channel both carry exactly this shape, no
// matter which writer produced it.
type StatusUpdate struct {
	OrderID      string     `json:"order_id"`
	OrderNumber  string     `json:"order_number,omitempty"`
	Status       Status     `json:"status"`
	CancelReason string     `json:"cancel_reason,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}
