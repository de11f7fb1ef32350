package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/devsec-blog-be/internal/api/respond"
	"github.com/isdelr/devsec-blog-be/internal/services"
)

// CommentHandler handles HTTP requests related to comments.
type CommentHandler struct {
	service services.CommentServiceProvider
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(service services.CommentServiceProvider) *CommentHandler {
	return &CommentHandler{service: service}
}

// Create handles adding a comment to a post.
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}
	var payload services.CreateCommentInput
	if !decodeJSON(w, r, &payload) {
		return
	}

	comment, err := h.service.CreateComment(r.Context(), session, payload)
	if err != nil {
		if errors.Is(err, services.ErrPostNotPublished) {
			respond.Error(w, http.StatusForbidden, "Post is not published")
			return
		}
		writeServiceError(w, r, err, errorMessages{NotFound: "Post not found", Internal: "Failed to create comment"})
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Comment created successfully",
		"comment": comment,
	})
}

// GetMine lists the caller's own comments.
func (h *CommentHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}
	comments, err := h.service.GetCommentsByAuthor(r.Context(), session.ID)
	if err != nil {
		writeServiceError(w, r, err, errorMessages{Internal: "Failed to fetch comments"})
		return
	}
	respond.JSON(w, http.StatusOK, comments)
}

// GetAll lists every comment. Admin only.
func (h *CommentHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	comments, err := h.service.GetAllComments(r.Context())
	if err != nil {
		writeServiceError(w, r, err, errorMessages{Internal: "Failed to fetch comments"})
		return
	}
	respond.JSON(w, http.StatusOK, comments)
}

// Update handles moderating a comment's content.
func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	var payload services.UpdateCommentInput
	if !decodeJSON(w, r, &payload) {
		return
	}

	comment, err := h.service.UpdateComment(r.Context(), session, id, payload)
	if err != nil {
		writeServiceError(w, r, err, errorMessages{NotFound: "Comment not found", Internal: "Failed to update comment"})
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Comment updated successfully",
		"comment": comment,
	})
}

// Delete handles removing a comment. Owners and admins only.
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteComment(r.Context(), session, id); err != nil {
		writeServiceError(w, r, err, errorMessages{
			NotFound:  "Comment not found",
			Forbidden: "Not authorized to delete this comment",
			Internal:  "Failed to delete comment",
		})
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"message": "Comment deleted successfully"})
}
