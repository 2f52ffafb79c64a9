package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"nabil-inventory-api/internal/model"
	"nabil-inventory-api/internal/service"
	"nabil-inventory-api/pkg/apierror"
	"nabil-inventory-api/pkg/response"
)

// AuthHandler handles session lifecycle HTTP requests. The upstream auth
// provider lives in the UI layer; this endpoint receives an already
// validated identity and owns the pull-on-login / wipe-on-logout
// transitions around it.
type AuthHandler struct {
	coordinator *service.SyncCoordinator
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(coordinator *service.SyncCoordinator) *AuthHandler {
	return &AuthHandler{coordinator: coordinator}
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if strings.TrimSpace(req.Email) == "" {
		response.Error(w, apierror.BadRequest("email is required"))
		return
	}

	user := model.User{Email: req.Email, Name: req.Name, Picture: req.Picture}
	if err := h.coordinator.Login(r.Context(), user); err != nil {
		if errors.Is(err, service.ErrSyncBusy) {
			response.Error(w, apierror.Conflict("sync already in progress"))
			return
		}
		response.Error(w, apierror.InternalError("login failed"))
		return
	}

	response.OK(w, user)
}

// Logout handles POST /api/v1/auth/logout. Always succeeds: local cleanup
// is best-effort and must never block leaving the account.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.coordinator.Logout(r.Context())
	response.OK(w, map[string]string{"status": "logged_out"})
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := h.coordinator.CurrentUser()
	if user == nil {
		response.Error(w, apierror.Unauthorized("no active session"))
		return
	}
	response.OK(w, user)
}
