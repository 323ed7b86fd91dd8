package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/danuprasetya/go-storefront/internal/auth"
	"github.com/danuprasetya/go-storefront/internal/orders"
	"github.com/danuprasetya/go-storefront/internal/payments"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation", Message: msg})
}

// writeError maps domain errors onto the API taxonomy. Nothing propagates past
// the route boundary unclassified.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orders.ErrNotFound), errors.Is(err, payments.ErrPaymentNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: err.Error()})
	case errors.Is(err, orders.ErrInvalidState):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_state", Message: err.Error()})
	case errors.Is(err, orders.ErrReasonRequired), errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrUserExists):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation", Message: err.Error()})
	case errors.Is(err, auth.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized", Message: "sign in required"})
	case errors.Is(err, auth.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorBody{Error: "forbidden", Message: "admin access required"})
	case errors.Is(err, payments.ErrGatewayUnavailable):
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "upstream_failure", Message: "payment provider is unavailable, please retry"})
	default:
		log.WithError(err).Error("unhandled error")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "unexpected", Message: "something went wrong"})
	}
}
