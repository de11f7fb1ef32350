package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/devsec-blog-be/internal/api/respond"
	"github.com/isdelr/devsec-blog-be/internal/services"
)

// UserHandler handles admin requests for user management.
type UserHandler struct {
	service services.UserServiceProvider
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider) *UserHandler {
	return &UserHandler{service: service}
}

var userErrors = errorMessages{NotFound: "User not found"}

// GetAll lists every user with post and comment counts.
func (h *UserHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err, errorMessages{Internal: "Failed to fetch users"})
		return
	}
	respond.JSON(w, http.StatusOK, users)
}

// Get handles retrieving a user by their ID.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user, err := h.service.GetUserDetail(r.Context(), id)
	if err != nil {
		msgs := userErrors
		msgs.Internal = "Failed to fetch user"
		writeServiceError(w, r, err, msgs)
		return
	}
	respond.JSON(w, http.StatusOK, user)
}

// Update handles changing a user's role or premium flag.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	var payload services.UpdateUserInput
	if !decodeJSON(w, r, &payload) {
		return
	}

	user, err := h.service.UpdateUser(r.Context(), session, id, payload)
	if err != nil {
		msgs := userErrors
		msgs.Internal = "Failed to update user"
		writeServiceError(w, r, err, msgs)
		return
	}
	respond.JSON(w, http.StatusOK, user)
}

// Delete handles the permanent deletion of a user account.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteUser(r.Context(), session, id); err != nil {
		msgs := userErrors
		msgs.Internal = "Failed to delete user"
		writeServiceError(w, r, err, msgs)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}
