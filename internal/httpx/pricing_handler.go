package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/danuprasetya/go-storefront/internal/auth"
	"github.com/danuprasetya/go-storefront/internal/pricing"
	"github.com/danuprasetya/go-storefront/internal/shipping"
)

type PricingHandler struct {
	Validator  *pricing.Validator
	Calculator *shipping.Calculator
	Sessions   *auth.Sessions
}

func (h *PricingHandler) Register(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(RequireSession(h.Sessions))
		r.Post("/api/coupons/validate", h.validateCoupon)
	})
	r.Post("/api/shipping/quote", h.quote)
}

type validateCouponReq struct {
	Code          string `json:"code"`
	SubtotalCents int64  `json:"subtotal_cents"`
	CategoryID    string `json:"category_id,omitempty"`
}

func (h *PricingHandler) validateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateCouponReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	verdict, err := h.Validator.Validate(ctx, req.Code, req.SubtotalCents, auth.UserID(r.Context()), req.CategoryID)
	if err != nil && errors.Is(err, pricing.ErrUserRequired) {
		writeError(w, auth.ErrUnauthorized)
		return
	}
	// Lookup failures already degraded to an invalid verdict with a message;
	// the cart stays interactive either way.
	writeJSON(w, http.StatusOK, verdict)
}

type quoteReq struct {
	Address shipping.Address `json:"address"`
	Parcel  shipping.Parcel  `json:"parcel"`
}

func (h *PricingHandler) quote(w http.ResponseWriter, r *http.Request) {
	var req quoteReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	options := h.Calculator.Quote(req.Address, req.Parcel)
	// Empty means "no shipping available" and is a normal response.
	writeJSON(w, http.StatusOK, map[string]any{"options": options})
}
