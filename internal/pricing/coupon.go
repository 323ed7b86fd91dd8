package pricing

import "time"

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type Coupon struct {
	ID               string       `json:"id"`
	Code             string       `json:"code"` // unique, matched case-insensitively
	Type             DiscountType `json:"type"`
	Value            int64        `json:"value"` // percent points or fixed cents
	MaxDiscountCents int64        `json:"max_discount_cents,omitempty"` // 0 = no cap
	MinSubtotalCents int64        `json:"min_subtotal_cents,omitempty"`
	UsageLimit       int          `json:"usage_limit"`
	UsedCount        int          `json:"used_count"`
	PerUserLimit     int          `json:"per_user_limit"`
	CategoryID       string       `json:"category_id,omitempty"` // empty = any category
	ValidFrom        time.Time    `json:"valid_from"`
	ValidUntil       time.Time    `json:"valid_until"`
}

// Discount computes the discount for a subtotal in cents. Fixed coupons cap at
// the subtotal; percentage coupons cap at max_discount (when set) and then at
// the subtotal. The result is never negative.
func Discount(c Coupon, subtotalCents int64) int64 {
	if subtotalCents <= 0 || c.Value <= 0 {
		return 0
	}

	var d int64
	switch c.Type {
	case DiscountFixed:
		d = c.Value
	case DiscountPercentage:
		d = subtotalCents * c.Value / 100
		if c.MaxDiscountCents > 0 && d > c.MaxDiscountCents {
			d = c.MaxDiscountCents
		}
	default:
		return 0
	}

	if d > subtotalCents {
		d = subtotalCents
	}
	if d < 0 {
		d = 0
	}
	return d
}
