package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/danuprasetya/go-storefront/internal/auth"
)

type AdminHandler struct {
	Users           *auth.Users
	ServiceRoleKey  string
	MaintenanceFlag bool
}

const maintenanceCookie = "maintenanceMode"

func (h *AdminHandler) Register(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(RequireServiceRole(h.ServiceRoleKey))
		r.Post("/api/admin/create-user", h.createUser)
		r.Put("/api/admin/create-user", h.updateUser)
		r.Post("/api/maintenance", h.setMaintenance)
	})
	r.Get("/api/maintenance", h.getMaintenance)
}

type userReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

func (h *AdminHandler) createUser(w http.ResponseWriter, r *http.Request) {
	var req userReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.Create(ctx, req.Email, req.Password, req.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *AdminHandler) updateUser(w http.ResponseWriter, r *http.Request) {
	var req userReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if req.Email == "" {
		badRequest(w, "email is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.Update(ctx, req.Email, req.Password, req.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// getMaintenance reports the client-visible maintenance state: the cookie
// overrides the server default.
func (h *AdminHandler) getMaintenance(w http.ResponseWriter, r *http.Request) {
	enabled := h.MaintenanceFlag
	if c, err := r.Cookie(maintenanceCookie); err == nil {
		enabled = c.Value == "true"
	}
	writeJSON(w, http.StatusOK, map[string]bool{"maintenance": enabled})
}

type maintenanceReq struct {
	Enabled bool `json:"enabled"`
}

func (h *AdminHandler) setMaintenance(w http.ResponseWriter, r *http.Request) {
	var req maintenanceReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	value := "false"
	if req.Enabled {
		value = "true"
	}
	// Readable client-side on purpose; the storefront UI checks it directly.
	http.SetCookie(w, &http.Cookie{
		Name:    maintenanceCookie,
		Value:   value,
		Path:    "/",
		Expires: time.Now().Add(7 * 24 * time.Hour),
	})
	writeJSON(w, http.StatusOK, map[string]bool{"maintenance": req.Enabled})
}
