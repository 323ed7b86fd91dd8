package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGatedRouter(defaultOn bool) http.Handler {
	r := NewRouter(MaintenanceGate(defaultOn, "sr-key"))
	r.Get("/api/products", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	(&AdminHandler{ServiceRoleKey: "sr-key", MaintenanceFlag: defaultOn}).Register(r)
	return r
}

func TestMaintenanceGateBlocksStorefrontTraffic(t *testing.T) {
	r := newGatedRouter(true)

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "maintenance")
}

func TestMaintenanceGateOffByDefault(t *testing.T) {
	r := newGatedRouter(false)

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMaintenanceGateCookieTurnsModeOn(t *testing.T) {
	r := newGatedRouter(false)

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.AddCookie(&http.Cookie{Name: maintenanceCookie, Value: "true"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMaintenanceGateLetsServiceRoleThrough(t *testing.T) {
	r := newGatedRouter(true)

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.Header.Set("X-Service-Role-Key", "sr-key")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMaintenanceGateKeepsToggleReachable(t *testing.T) {
	r := newGatedRouter(true)

	req := httptest.NewRequest(http.MethodGet, "/api/maintenance", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"maintenance":true}`, rec.Body.String())
}

func TestMaintenanceGateIgnoresNonAPIPaths(t *testing.T) {
	r := newGatedRouter(true)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
