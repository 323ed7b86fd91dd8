package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	kafkax "github.com/danuprasetya/go-storefront/internal/kafka"
	"github.com/danuprasetya/go-storefront/internal/metrics"
	"github.com/danuprasetya/go-storefront/internal/orders"
)

type OrderStore interface {
	Get(ctx context.Context, orderID string) (orders.Order, error)
	GetForUser(ctx context.Context, orderID, userID string) (orders.Order, error)
	MarkPaid(ctx context.Context, orderID string) (bool, error)
}

type PaymentStore interface {
	UpsertForOrder(ctx context.Context, orderID string, method Method, amountCents int64, currency string) (Payment, error)
	AttachSession(ctx context.Context, paymentID, sessionID string) error
	AttachSessionByOrder(ctx context.Context, orderID, sessionID string) error
	FinalizePaid(ctx context.Context, sessionID, intentID string) (bool, Payment, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type StockStore interface {
	DecrementStock(ctx context.Context, orderID string) ([]orders.StockUpdatedPayload, error)
}

// CouponRedeemer records a coupon use once the order it discounted is paid.
type CouponRedeemer interface {
	Redeem(ctx context.Context, couponID, userID, orderID string) error
}

// SessionCache short-circuits a repeated initiate with the session already
// created for that user's order. It is consulted only after the ownership and
// pending-state checks pass, so a cached entry can never leak a session across
// users or outlive the order's pending state.
type SessionCache interface {
	Get(ctx context.Context, userID, orderID string) (InitiateResult, bool)
	Put(ctx context.Context, userID, orderID string, res InitiateResult)
}

// Checkout orchestrates gateway sessions and payment finalization.
type Checkout struct {
	Orders        OrderStore
	Payments      PaymentStore
	Gateway       Gateway
	Stock         StockStore     // optional
	Coupons       CouponRedeemer // optional
	Cache         SessionCache   // optional
	Producer      Publisher
	StockProducer Publisher
	AppBaseURL    string
	Service       string
}

type InitiateResult struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"url"`
}

// Initiate creates a hosted checkout session for a pending order. The gateway
// session is created before any payment row is written, so a gateway failure
// leaves no partial state. A payment row that ends up without a session id
// (attach failed) stays pending and gets a fresh session attached on retry.
func (c *Checkout) Initiate(ctx context.Context, orderID, userID string, method Method) (InitiateResult, error) {
	o, err := c.Orders.GetForUser(ctx, orderID, userID)
	if err != nil {
		return InitiateResult{}, err
	}
	if o.Status != orders.StatusPending {
		return InitiateResult{}, fmt.Errorf("%w: checkout requires a pending order, got %s",
			orders.ErrInvalidState, o.Status)
	}

	if c.Cache != nil {
		if res, ok := c.Cache.Get(ctx, userID, o.ID); ok {
			return res, nil
		}
	}

	params := SessionParams{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Currency:    o.Currency,
		Items:       buildLineItems(o),
		SuccessURL:  c.AppBaseURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   c.AppBaseURL + "/checkout/cancel",
	}

	sess, err := c.Gateway.CreateSession(ctx, params)
	if err != nil {
		return InitiateResult{}, err
	}

	p, err := c.Payments.UpsertForOrder(ctx, o.ID, method, o.TotalCents, o.Currency)
	if err != nil {
		return InitiateResult{}, err
	}
	if err := c.Payments.AttachSession(ctx, p.ID, sess.ID); err != nil {
		// The payment row exists but carries no session reference. It remains
		// pending; the next Initiate or a webhook-driven backfill recovers it.
		log.WithError(err).WithFields(log.Fields{"order_id": o.ID, "payment_id": p.ID}).
			Error("failed to attach gateway session to payment")
		return InitiateResult{}, err
	}

	res := InitiateResult{SessionID: sess.ID, RedirectURL: sess.URL}
	if c.Cache != nil {
		c.Cache.Put(ctx, userID, o.ID, res)
	}
	return res, nil
}

// buildLineItems maps the order's snapshotted items to gateway lines, adding
// shipping as a synthetic line when non-zero.
func buildLineItems(o orders.Order) []LineItem {
	items := make([]LineItem, 0, len(o.Items)+1)
	for _, it := range o.Items {
		items = append(items, LineItem{Name: it.Title, PriceCents: it.PriceCents, Qty: it.Qty})
	}
	if o.ShippingCents > 0 {
		items = append(items, LineItem{Name: "Shipping", PriceCents: o.ShippingCents, Qty: 1})
	}
	if o.DiscountCents > 0 {
		items = append(items, LineItem{Name: "Discount", PriceCents: -o.DiscountCents, Qty: 1})
	}
	return items
}

type VerifyResult struct {
	Success bool   `json:"success"`
	OrderID string `json:"order_id,omitempty"`
}

// Verify confirms a gateway session and finalizes payment and order exactly
// once. The synchronous client call and the asynchronous webhook both land
// here; whichever arrives first performs the transition, the other observes
// "already paid" and reports success without writing.
func (c *Checkout) Verify(ctx context.Context, sessionID string) (VerifyResult, error) {
	st, err := c.Gateway.GetSession(ctx, sessionID)
	if err != nil {
		// Gateway-side failure: report failure, mutate nothing.
		metrics.PaymentFinalizations.WithLabelValues("gateway_error").Inc()
		return VerifyResult{}, err
	}
	if !st.Paid || st.OrderID == "" {
		return VerifyResult{Success: false, OrderID: st.OrderID}, nil
	}

	changed, p, err := c.Payments.FinalizePaid(ctx, sessionID, st.IntentID)
	if errors.Is(err, ErrPaymentNotFound) {
		// Session was never attached (checkout crashed mid-flight). Backfill
		// the reference onto the pending payment and finalize it.
		if err := c.Payments.AttachSessionByOrder(ctx, st.OrderID, sessionID); err != nil {
			return VerifyResult{}, err
		}
		changed, p, err = c.Payments.FinalizePaid(ctx, sessionID, st.IntentID)
	}
	if err != nil {
		return VerifyResult{}, err
	}

	if changed {
		if _, err := c.Orders.MarkPaid(ctx, p.OrderID); err != nil {
			return VerifyResult{}, err
		}
		c.onOrderPaid(ctx, p)
		metrics.PaymentFinalizations.WithLabelValues("finalized").Inc()
	} else {
		// The payment was finalized by an earlier call, but that call may have
		// died before the order transition landed. MarkPaid is conditional on
		// "pending", so retrying it here is a no-op in the normal case and the
		// recovery in the crashed one.
		if ok, err := c.Orders.MarkPaid(ctx, p.OrderID); err != nil {
			log.WithError(err).WithField("order_id", p.OrderID).Warn("order transition retry failed")
		} else if ok {
			c.onOrderPaid(ctx, p)
		}
		metrics.PaymentFinalizations.WithLabelValues("already_paid").Inc()
	}
	return VerifyResult{Success: true, OrderID: p.OrderID}, nil
}

// onOrderPaid runs the post-transition side effects. It executes exactly once
// per order because its callers guard it with MarkPaid's conditional update.
func (c *Checkout) onOrderPaid(ctx context.Context, p Payment) {
	c.publishPaid(p)
	c.decrementStock(ctx, p.OrderID)
	c.redeemCoupon(ctx, p.OrderID)
}

// redeemCoupon records the coupon use backing the order's discount. The
// payment is already captured, so a failure here is logged rather than
// surfaced; an exhausted coupon at this point means the eligibility check and
// the payment raced, which the usage row audit trail makes visible.
func (c *Checkout) redeemCoupon(ctx context.Context, orderID string) {
	if c.Coupons == nil {
		return
	}
	o, err := c.Orders.Get(ctx, orderID)
	if err != nil {
		log.WithError(err).WithField("order_id", orderID).Warn("coupon redemption load failed")
		return
	}
	if o.CouponID == "" {
		return
	}
	if err := c.Coupons.Redeem(ctx, o.CouponID, o.UserID, o.ID); err != nil {
		log.WithError(err).WithFields(log.Fields{"order_id": o.ID, "coupon_id": o.CouponID}).
			Warn("coupon redemption failed")
	}
}

// decrementStock runs only on the call that performed the finalization, so a
// duplicate confirmation never double-decrements.
func (c *Checkout) decrementStock(ctx context.Context, orderID string) {
	if c.Stock == nil {
		return
	}
	updates, err := c.Stock.DecrementStock(ctx, orderID)
	if err != nil {
		log.WithError(err).WithField("order_id", orderID).Error("stock decrement failed")
		return
	}
	if c.StockProducer == nil {
		return
	}
	for _, u := range updates {
		ev := orders.Envelope{
			EventID:       uuid.NewString(),
			EventType:     orders.EventStockUpdated,
			EventVersion:  1,
			OccurredAt:    time.Now().UTC(),
			Producer:      c.Service,
			CorrelationID: orderID,
			Payload:       kafkax.MustMarshal(u),
		}
		c.StockProducer.Publish(orders.PartitionKey(u.ProductID), kafkax.MustMarshal(ev),
			kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventStockUpdated)},
			kafkago.Header{Key: "x-event-version", Value: []byte("1")},
		)
	}
}

func (c *Checkout) publishPaid(p Payment) {
	if c.Producer == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderPaid,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      c.Service,
		CorrelationID: p.OrderID,
		Payload: kafkax.MustMarshal(orders.OrderPaidPayload{
			OrderID:     p.OrderID,
			PaymentID:   p.ID,
			AmountCents: p.AmountCents,
			Currency:    p.Currency,
		}),
	}
	c.Producer.Publish(orders.PartitionKey(p.OrderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderPaid)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
