package orders

import "time"

type Order struct {
	ID            string     `json:"id"`
	OrderNumber   string     `json:"order_number"`
	UserID        string     `json:"user_id"`
	Status        Status     `json:"status"`
	SubtotalCents int64      `json:"subtotal_cents"`
	ShippingCents int64      `json:"shipping_cents"`
	DiscountCents int64      `json:"discount_cents"`
	TotalCents    int64      `json:"total_cents"`
	Currency      string     `json:"currency"`
	CouponID      string     `json:"coupon_id,omitempty"`
	CancelReason  string     `json:"cancel_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	ShippedAt     *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt   *time.Time `json:"delivered_at,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	Items         []Item     `json:"items,omitempty"`
}

// Item carries the product snapshot taken at order time; later catalog edits
// never change what the buyer sees on the order.
type Item struct {
	ID         string `json:"id"`
	OrderID    string `json:"order_id"`
	ProductID  string `json:"product_id"`
	Title      string `json:"title"`
	ImageURL   string `json:"image_url,omitempty"`
	PriceCents int64  `json:"price_cents"`
	Qty        int    `json:"qty"`
}
