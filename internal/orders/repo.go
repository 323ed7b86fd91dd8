package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound       = errors.New("order not found")
	ErrInvalidState   = errors.New("operation not allowed in current order status")
	ErrReasonRequired = errors.New("cancel reason is required")
)

type Repo struct{ DB *pgxpool.Pool }

const orderColumns = `id, order_number, user_id, status, subtotal_cents, shipping_cents,
	discount_cents, total_cents, currency, COALESCE(coupon_id, ''),
	COALESCE(cancel_reason, ''), created_at,
	paid_at, shipped_at, delivered_at, cancelled_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.SubtotalCents,
		&o.ShippingCents, &o.DiscountCents, &o.TotalCents, &o.Currency, &o.CouponID,
		&o.CancelReason, &o.CreatedAt, &o.PaidAt, &o.ShippedAt, &o.DeliveredAt, &o.CancelledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

func (r *Repo) Get(ctx context.Context, orderID string) (Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, orderID))
	if err != nil {
		return Order{}, err
	}
	if err := r.loadItems(ctx, &o); err != nil {
		return Order{}, err
	}
	return o, nil
}

// GetForUser scopes the lookup to the owning user; a foreign order is
// indistinguishable from a missing one.
func (r *Repo) GetForUser(ctx context.Context, orderID, userID string) (Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id=$1 AND user_id=$2`, orderID, userID))
	if err != nil {
		return Order{}, err
	}
	if err := r.loadItems(ctx, &o); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *Repo) loadItems(ctx context.Context, o *Order) error {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, title, COALESCE(image_url, ''), price_cents, qty
		FROM order_items WHERE order_id=$1 ORDER BY id`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Title, &it.ImageURL, &it.PriceCents, &it.Qty); err != nil {
			return err
		}
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

// StatusForUser is the ownership-scoped lookup backing the status poll.
func (r *Repo) StatusForUser(ctx context.Context, orderID, userID string) (Status, error) {
	var s string
	err := r.DB.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 AND user_id=$2`,
		orderID, userID).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return Status(s), nil
}

// MarkPaid moves a pending order to confirmed, stamping paid_at exactly once.
// The WHERE clause makes the transition single-shot: a concurrent caller sees
// zero rows affected and knows someone else already finalized.
func (r *Repo) MarkPaid(ctx context.Context, orderID string) (changed bool, err error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status=$2, paid_at=COALESCE(paid_at, now()), updated_at=now()
		WHERE id=$1 AND status=$3`,
		orderID, StatusConfirmed, StatusPending)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// Cancel moves an owned order into the cancelled terminal. Allowed from any
// pre-delivery status; the reason is mandatory and surfaced verbatim.
func (r *Repo) Cancel(ctx context.Context, orderID, userID, reason string) error {
	if reason == "" {
		return ErrReasonRequired
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 AND user_id=$2 FOR UPDATE`,
		orderID, userID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if !CanTransition(status, StatusCancelled) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidState, status, StatusCancelled)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status=$2, cancel_reason=$3,
			cancelled_at=COALESCE(cancelled_at, now()), updated_at=now()
		WHERE id=$1`,
		orderID, StatusCancelled, reason); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// timestampColumn maps a target status to the column stamped on entry; empty
// means the transition carries no dedicated timestamp.
func timestampColumn(to Status) string {
	switch to {
	case StatusConfirmed:
		return "paid_at"
	case StatusShipped:
		return "shipped_at"
	case StatusDelivered:
		return "delivered_at"
	case StatusCancelled:
		return "cancelled_at"
	}
	return ""
}

// Advance performs an operational transition (confirmed -> processing ->
// shipped -> delivered -> completed, or into refunded). The row is locked so
// the CanTransition check and the write observe the same status. The owning
// user id comes back with the prior status so callers can invalidate the
// owner-scoped caches.
func (r *Repo) Advance(ctx context.Context, orderID string, to Status) (from Status, ownerID string, err error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `SELECT status, user_id FROM orders WHERE id=$1 FOR UPDATE`, orderID).
		Scan(&from, &ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", ErrNotFound
	}
	if err != nil {
		return "", "", err
	}
	if !CanTransition(from, to) {
		return from, ownerID, fmt.Errorf("%w: %s -> %s", ErrInvalidState, from, to)
	}

	q := `UPDATE orders SET status=$2, updated_at=now()`
	if col := timestampColumn(to); col != "" {
		q += `, ` + col + `=COALESCE(` + col + `, now())`
	}
	q += ` WHERE id=$1`
	if _, err := tx.Exec(ctx, q, orderID, to); err != nil {
		return from, ownerID, err
	}
	if err := tx.Commit(ctx); err != nil {
		return from, ownerID, err
	}
	return from, ownerID, nil
}
