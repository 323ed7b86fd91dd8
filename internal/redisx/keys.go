package redisx

import "time"

const (
	// Cache order status, scoped to the owner so a hit never crosses users:
	// order_status:{user_id}:{order_id} -> status snapshot JSON
	KeyOrderStatus = "order_status:%s:%s"

	// Idempotency shortcut for checkout initiation, scoped the same way:
	// idem:checkout:{user_id}:{order_id} -> InitiateResult JSON
	KeyIdemCheckout = "idem:checkout:%s:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Cached category list (whole JSON array).
	KeyCategories = "catalog:categories"

	// Realtime channels: one per order owner, one per product.
	ChanUserOrders   = "rt:orders:user:%s"
	ChanProductStock = "rt:stock:product:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
	TTLCategories  = 10 * time.Minute
)
