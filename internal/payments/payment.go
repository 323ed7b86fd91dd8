package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusFailed  Status = "failed"
)

type Method string

const (
	MethodCard         Method = "card"
	MethodBankTransfer Method = "bank_transfer"
	MethodPaypal       Method = "paypal"
)

var ErrPaymentNotFound = errors.New("payment not found")

type Payment struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"order_id"`
	Method      Method    `json:"method"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Status      Status    `json:"status"`
	SessionID   string    `json:"gateway_session_id,omitempty"`
	IntentID    string    `json:"gateway_intent_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Repo struct{ DB *pgxpool.Pool }

// UpsertForOrder keeps exactly one payment row per order: a retried checkout
// updates the existing attempt instead of stacking new rows.
func (r *Repo) UpsertForOrder(ctx context.Context, orderID string, method Method, amountCents int64, currency string) (Payment, error) {
	var p Payment
	err := r.DB.QueryRow(ctx, `
		INSERT INTO payments(id, order_id, method, amount_cents, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (order_id) DO UPDATE
			SET method = EXCLUDED.method,
			    amount_cents = EXCLUDED.amount_cents,
			    currency = EXCLUDED.currency,
			    updated_at = now()
		RETURNING id, order_id, method, amount_cents, currency, status,
			COALESCE(gateway_session_id, ''), COALESCE(gateway_intent_id, ''), created_at`,
		uuid.NewString(), orderID, method, amountCents, currency, StatusPending,
	).Scan(&p.ID, &p.OrderID, &p.Method, &p.AmountCents, &p.Currency, &p.Status,
		&p.SessionID, &p.IntentID, &p.CreatedAt)
	return p, err
}

func (r *Repo) AttachSession(ctx context.Context, paymentID, sessionID string) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE payments SET gateway_session_id=$2, updated_at=now() WHERE id=$1`,
		paymentID, sessionID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

// AttachSessionByOrder backfills a session id onto a payment that was left
// without one (checkout crashed between session creation and attachment).
// Only a still-pending, session-less payment is touched.
func (r *Repo) AttachSessionByOrder(ctx context.Context, orderID, sessionID string) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE payments SET gateway_session_id=$2, updated_at=now()
		WHERE order_id=$1 AND status=$3 AND gateway_session_id IS NULL`,
		orderID, sessionID, StatusPending)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (r *Repo) BySession(ctx context.Context, sessionID string) (Payment, error) {
	var p Payment
	err := r.DB.QueryRow(ctx, `
		SELECT id, order_id, method, amount_cents, currency, status,
			COALESCE(gateway_session_id, ''), COALESCE(gateway_intent_id, ''), created_at
		FROM payments WHERE gateway_session_id=$1`, sessionID,
	).Scan(&p.ID, &p.OrderID, &p.Method, &p.AmountCents, &p.Currency, &p.Status,
		&p.SessionID, &p.IntentID, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, ErrPaymentNotFound
	}
	return p, err
}

// FinalizePaid flips a pending payment to paid in one conditional statement.
// changed=false with a nil error means another confirmation source (webhook or
// a parallel verify call) already finalized this session.
func (r *Repo) FinalizePaid(ctx context.Context, sessionID, intentID string) (changed bool, p Payment, err error) {
	err = r.DB.QueryRow(ctx, `
		UPDATE payments SET status=$2, gateway_intent_id=$3, updated_at=now()
		WHERE gateway_session_id=$1 AND status=$4
		RETURNING id, order_id, method, amount_cents, currency, status,
			COALESCE(gateway_session_id, ''), COALESCE(gateway_intent_id, ''), created_at`,
		sessionID, StatusPaid, intentID, StatusPending,
	).Scan(&p.ID, &p.OrderID, &p.Method, &p.AmountCents, &p.Currency, &p.Status,
		&p.SessionID, &p.IntentID, &p.CreatedAt)
	if err == nil {
		return true, p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, Payment{}, err
	}

	// No pending row matched: either already finalized, or unknown session.
	p, err = r.BySession(ctx, sessionID)
	if err != nil {
		return false, Payment{}, err
	}
	return false, p, nil
}
