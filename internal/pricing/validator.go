package pricing

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var (
	ErrUserRequired = errors.New("coupon requires a signed-in user")
	ErrExhausted    = errors.New("coupon usage limit reached")
)

// Verdict is what the UI renders: Message holds the verbatim human-readable
// reason when the coupon is invalid.
type Verdict struct {
	IsValid       bool   `json:"is_valid"`
	CouponID      string `json:"coupon_id,omitempty"`
	DiscountCents int64  `json:"discount_cents,omitempty"`
	Message       string `json:"message,omitempty"`
}

type Validator struct{ DB *pgxpool.Pool }

// Validate delegates the eligibility rule set (validity window, usage cap,
// per-user cap, category match, minimum subtotal) to the validate_coupon
// database function so every call site evaluates the same rules atomically.
// The discount amount itself is computed in Go from the coupon row, keeping
// the arithmetic in one tested place.
func (v *Validator) Validate(ctx context.Context, code string, subtotalCents int64, userID, categoryID string) (Verdict, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Verdict{Message: "Coupon code is required"}, nil
	}
	if subtotalCents < 0 {
		return Verdict{Message: "Invalid order subtotal"}, nil
	}
	if userID == "" {
		return Verdict{Message: "Sign in to apply a coupon"}, ErrUserRequired
	}

	var (
		isValid  bool
		couponID *string
		message  *string
	)
	err := v.DB.QueryRow(ctx,
		`SELECT is_valid, coupon_id, error_message
		 FROM validate_coupon($1, $2, $3, NULLIF($4, ''))`,
		code, subtotalCents, userID, categoryID,
	).Scan(&isValid, &couponID, &message)
	if err != nil {
		// Lookup failures degrade to an invalid verdict so the cart stays
		// interactive; the error is still reported for logging upstream.
		log.WithError(err).WithField("code", code).Warn("coupon validation lookup failed")
		return Verdict{Message: "Could not validate coupon, please try again"}, err
	}

	out := Verdict{IsValid: isValid}
	if couponID != nil {
		out.CouponID = *couponID
	}
	if message != nil {
		out.Message = *message
	}
	if !isValid {
		return out, nil
	}

	c, err := v.GetByCode(ctx, code)
	if err != nil {
		log.WithError(err).WithField("code", code).Warn("coupon fetch failed")
		return Verdict{Message: "Could not validate coupon, please try again"}, err
	}
	out.DiscountCents = Discount(c, subtotalCents)
	return out, nil
}

// GetByCode fetches a coupon for direct discount computation outside the
// validation call.
func (v *Validator) GetByCode(ctx context.Context, code string) (Coupon, error) {
	var c Coupon
	var categoryID *string
	err := v.DB.QueryRow(ctx, `
		SELECT id, code, discount_type, value, COALESCE(max_discount_cents, 0),
			COALESCE(min_subtotal_cents, 0), usage_limit, used_count,
			per_user_limit, category_id, valid_from, valid_until
		FROM coupons WHERE lower(code) = lower($1)`, strings.TrimSpace(code),
	).Scan(&c.ID, &c.Code, &c.Type, &c.Value, &c.MaxDiscountCents,
		&c.MinSubtotalCents, &c.UsageLimit, &c.UsedCount,
		&c.PerUserLimit, &categoryID, &c.ValidFrom, &c.ValidUntil)
	if err != nil {
		return Coupon{}, err
	}
	if categoryID != nil {
		c.CategoryID = *categoryID
	}
	return c, nil
}

// Redeem records one use of a coupon for an order. The counter bump is a
// compare-and-increment in the same transaction as the usage row, so two
// concurrent checkouts can never both consume the last remaining use.
func (v *Validator) Redeem(ctx context.Context, couponID, userID, orderID string) error {
	tx, err := v.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `
		UPDATE coupons SET used_count = used_count + 1, updated_at = now()
		WHERE id = $1 AND used_count < usage_limit`, couponID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrExhausted
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO coupon_usages(coupon_id, user_id, order_id)
		VALUES ($1, $2, $3)`, couponID, userID, orderID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
