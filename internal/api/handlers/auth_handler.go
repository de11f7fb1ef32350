package handlers

import (
	"errors"
	"net/http"

	"github.com/isdelr/devsec-blog-be/internal/api/respond"
	"github.com/isdelr/devsec-blog-be/internal/services"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles registration, login and the caller's own account.
type AuthHandler struct {
	service services.UserServiceProvider
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service services.UserServiceProvider) *AuthHandler {
	return &AuthHandler{service: service}
}

// Register handles new user registration.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload services.RegisterInput
	if !decodeJSON(w, r, &payload) {
		return
	}

	result, err := h.service.Register(r.Context(), payload)
	if err != nil {
		if errors.Is(err, services.ErrReservedUsername) {
			log.Warn().Str("username", payload.Username).Msg("Registration attempted with reserved username")
			respond.Error(w, http.StatusForbidden, "Reserved username")
			return
		}
		writeServiceError(w, r, err, errorMessages{Internal: "Registration failed"})
		return
	}

	respond.JSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User created successfully",
		"user":    result.User,
		"token":   result.Token,
	})
}

// Login handles user authentication and JWT generation.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload services.LoginInput
	if !decodeJSON(w, r, &payload) {
		return
	}

	result, err := h.service.Login(r.Context(), payload)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			log.Warn().Str("email", payload.Email).Msg("Failed authentication attempt")
			respond.Error(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		writeServiceError(w, r, err, errorMessages{Internal: "Login failed"})
		return
	}

	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"user":    result.User,
		"token":   result.Token,
	})
}

// Me returns the stored record of the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetUserByID(r.Context(), session.ID)
	if err != nil {
		writeServiceError(w, r, err, errorMessages{NotFound: "User not found", Internal: "Failed to fetch user"})
		return
	}
	respond.JSON(w, http.StatusOK, user)
}

// ChangePassword handles changing the caller's password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}
	var payload services.ChangePasswordInput
	if !decodeJSON(w, r, &payload) {
		return
	}

	if err := h.service.ChangePassword(r.Context(), session.ID, payload); err != nil {
		writeServiceError(w, r, err, errorMessages{NotFound: "User not found", Internal: "Failed to change password"})
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"message": "Password updated successfully"})
}
