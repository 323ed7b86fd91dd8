package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/danuprasetya/go-storefront/internal/auth"
	"github.com/danuprasetya/go-storefront/internal/realtime"
)

// RealtimeHandler streams order and stock updates to the browser as
// server-sent events. Each request owns one subscription, torn down when the
// client disconnects.
type RealtimeHandler struct {
	Notifier *realtime.Notifier
	Sessions *auth.Sessions
}

func (h *RealtimeHandler) Register(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(RequireSession(h.Sessions))
		r.Get("/api/realtime", h.stream)
	})
}

func (h *RealtimeHandler) stream(w http.ResponseWriter, r *http.Request) {
	fl, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError,
			errorBody{Error: "unsupported", Message: "streaming is not supported on this connection"})
		return
	}

	filter := realtime.Filter{UserID: auth.UserID(r.Context())}
	if p := r.URL.Query().Get("products"); p != "" {
		filter.ProductIDs = strings.Split(p, ",")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fl.Flush()

	// Events that arrive while the client's buffer is full are skipped; the
	// status poll endpoint remains the catch-up path, and the recovered event
	// tells the client to use it.
	events := make(chan realtime.Event, 32)
	recovered := make(chan struct{}, 1)
	sub := h.Notifier.Subscribe(filter,
		func(ev realtime.Event) {
			select {
			case events <- ev:
			default:
			}
		},
		func() {
			select {
			case recovered <- struct{}{}:
			default:
			}
		},
	)
	defer sub.Unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-events:
			b, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", b)
			fl.Flush()
		case <-recovered:
			// The connection was down; the client should re-fetch anything it
			// may have missed.
			fmt.Fprint(w, "event: recovered\ndata: {}\n\n")
			fl.Flush()
		}
	}
}
