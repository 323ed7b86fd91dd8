package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/danuprasetya/go-storefront/internal/auth"
	kafkax "github.com/danuprasetya/go-storefront/internal/kafka"
	"github.com/danuprasetya/go-storefront/internal/orders"
	"github.com/danuprasetya/go-storefront/internal/redisx"
)

type OrdersHandler struct {
	Repo           *orders.Repo
	Sessions       *auth.Sessions
	Redis          *redis.Client
	StatusProducer *kafkax.Producer
	CancelProducer *kafkax.Producer
	Service        string
	ServiceRoleKey string
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(RequireSession(h.Sessions))
		r.Get("/api/orders/{id}", h.getOrder)
		r.Get("/api/orders/{id}/status", h.getStatus)
		r.Post("/api/orders/{id}/cancel", h.cancel)
	})
	r.Group(func(r chi.Router) {
		r.Use(RequireServiceRole(h.ServiceRoleKey))
		r.Post("/api/admin/orders/{id}/advance", h.advance)
	})
}

type orderView struct {
	orders.Order
	Progress orders.ProgressView `json:"progress"`
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		badRequest(w, "missing order id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Repo.GetForUser(ctx, orderID, auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView{Order: o, Progress: orders.Progress(o.Status, o.CancelReason)})
}

// getStatus serves the lightweight status poll, cache first. The cache key
// carries the requester's user id, so a warm entry is only ever visible to the
// order's owner; everyone else falls through to the ownership-scoped lookup.
func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	userID := auth.UserID(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderStatus, userID, orderID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	status, err := h.Repo.StatusForUser(ctx, orderID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	body, _ := json.Marshal(orders.StatusUpdate{OrderID: orderID, Status: status})
	_ = h.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
	writeJSON(w, http.StatusOK, json.RawMessage(body))
}

type cancelReq struct {
	Reason string `json:"reason"`
}

func (h *OrdersHandler) cancel(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var req cancelReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID := auth.UserID(r.Context())
	if err := h.Repo.Cancel(ctx, orderID, userID, req.Reason); err != nil {
		writeError(w, err)
		return
	}

	// A cancelled order must not serve a stale status or a live checkout
	// session from cache.
	_ = h.Redis.Del(ctx,
		fmt.Sprintf(redisx.KeyOrderStatus, userID, orderID),
		fmt.Sprintf(redisx.KeyIdemCheckout, userID, orderID),
	).Err()
	h.publish(h.CancelProducer, orders.EventOrderCancelled, orderID, r,
		orders.OrderCancelledPayload{OrderID: orderID, UserID: userID, Reason: req.Reason})

	writeJSON(w, http.StatusOK, orders.StatusUpdate{
		OrderID: orderID, Status: orders.StatusCancelled, CancelReason: req.Reason,
	})
}

type advanceReq struct {
	Status orders.Status `json:"status"`
}

// advance is the operational/admin transition: confirmed -> processing ->
// shipped -> delivered -> completed, or into refunded.
func (h *OrdersHandler) advance(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var req advanceReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if req.Status == "" {
		badRequest(w, "status is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	from, ownerID, err := h.Repo.Advance(ctx, orderID, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderStatus, ownerID, orderID)).Err()
	h.publish(h.StatusProducer, orders.EventOrderStatusChanged, orderID, r,
		orders.OrderStatusChangedPayload{OrderID: orderID, UserID: ownerID, From: from, To: req.Status})

	writeJSON(w, http.StatusOK, orders.StatusUpdate{OrderID: orderID, Status: req.Status})
}

func (h *OrdersHandler) publish(p *kafkax.Producer, eventType, orderID string, r *http.Request, payload any) {
	if p == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
