package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/danuprasetya/go-storefront/internal/auth"
	"github.com/danuprasetya/go-storefront/internal/payments"
)

type CheckoutHandler struct {
	Checkout *payments.Checkout
	Sessions *auth.Sessions
}

func (h *CheckoutHandler) Register(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(RequireSession(h.Sessions))
		r.Post("/api/checkout", h.initiate)
	})
	r.Get("/api/checkout/verify", h.verify)
	r.Post("/api/payments/webhook", h.webhook)
}

type initiateReq struct {
	OrderID string `json:"order_id"`
	Method  string `json:"method"`
}

func (h *CheckoutHandler) initiate(w http.ResponseWriter, r *http.Request) {
	var req initiateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if req.OrderID == "" {
		badRequest(w, "order_id is required")
		return
	}
	method := payments.Method(req.Method)
	if method == "" {
		method = payments.MethodCard
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	// Session reuse for double submits happens inside the orchestrator, after
	// the ownership and state checks.
	res, err := h.Checkout.Initiate(ctx, req.OrderID, auth.UserID(r.Context()), method)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *CheckoutHandler) verify(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		badRequest(w, "session_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.Checkout.Verify(ctx, sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type webhookEvent struct {
	Type string `json:"type"`
	Data struct {
		SessionID string `json:"session_id"`
	} `json:"data"`
}

// webhook receives the gateway's asynchronous confirmation. It shares the
// verify path, so double delivery against a finalized session is a no-op.
func (h *CheckoutHandler) webhook(w http.ResponseWriter, r *http.Request) {
	var ev webhookEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		badRequest(w, "invalid payload")
		return
	}
	if ev.Type != "checkout.session.completed" || ev.Data.SessionID == "" {
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if _, err := h.Checkout.Verify(ctx, ev.Data.SessionID); err != nil {
		// Non-2xx makes the gateway redeliver later.
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
