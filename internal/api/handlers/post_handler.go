package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/devsec-blog-be/internal/api/respond"
	"github.com/isdelr/devsec-blog-be/internal/auth"
	"github.com/isdelr/devsec-blog-be/internal/models"
	"github.com/isdelr/devsec-blog-be/internal/services"
	"github.com/isdelr/devsec-blog-be/internal/validation"
)

// PostHandler handles HTTP requests related to blog posts.
type PostHandler struct {
	service services.PostServiceProvider
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(service services.PostServiceProvider) *PostHandler {
	return &PostHandler{service: service}
}

var postErrors = errorMessages{NotFound: "Post not found"}

// parseFilter reads the category, limit and isPublished query parameters.
// A missing or non-positive limit means no limit.
func parseFilter(r *http.Request, allowPublishedFilter bool) (services.PostFilter, *validation.Error) {
	q := r.URL.Query()
	var filter services.PostFilter

	if c := q.Get("category"); c != "" {
		category := models.Category(c)
		if !category.Valid() {
			return filter, validation.NewError(validation.FieldError{
				Field:   "category",
				Message: "Category must be CODE_TUTORIAL or PENTESTING",
			})
		}
		filter.Category = category
	}

	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 {
		filter.Limit = l
	}

	if allowPublishedFilter {
		if p := q.Get("isPublished"); p != "" {
			published, err := strconv.ParseBool(p)
			if err != nil {
				return filter, validation.NewError(validation.FieldError{
					Field:   "isPublished",
					Message: "isPublished must be true or false",
				})
			}
			filter.IsPublished = &published
		}
	}
	return filter, nil
}

// GetPublished lists published posts, newest first.
func (h *PostHandler) GetPublished(w http.ResponseWriter, r *http.Request) {
	filter, verr := parseFilter(r, false)
	if verr != nil {
		respond.Validation(w, verr)
		return
	}

	posts, err := h.service.ListPublishedPosts(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err, errorMessages{Internal: "Failed to fetch posts"})
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{"posts": posts, "message": "Published posts"})
}

// GetAll lists every post including drafts. Admin only.
func (h *PostHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	filter, verr := parseFilter(r, true)
	if verr != nil {
		respond.Validation(w, verr)
		return
	}

	posts, err := h.service.ListAllPosts(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err, errorMessages{Internal: "Failed to fetch posts"})
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{"posts": posts, "message": "All posts"})
}

// Get returns a single post by id or slug. Drafts are only visible to admins
// and look exactly like a missing post to everyone else.
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")
	session, _ := auth.FromContext(r.Context())

	post, err := h.service.GetPost(r.Context(), identifier, session.IsAdmin())
	if err != nil {
		msgs := postErrors
		msgs.Internal = "Failed to fetch post"
		writeServiceError(w, r, err, msgs)
		return
	}
	respond.JSON(w, http.StatusOK, post)
}

// Create handles creating a new post.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}
	var payload services.CreatePostInput
	if !decodeJSON(w, r, &payload) {
		return
	}

	post, err := h.service.CreatePost(r.Context(), session, payload)
	if err != nil {
		writeServiceError(w, r, err, errorMessages{Internal: "Failed to create post"})
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Post created successfully",
		"post":    post,
	})
}

// Update handles partial updates of a post. Only provided fields change.
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	var payload services.UpdatePostInput
	if !decodeJSON(w, r, &payload) {
		return
	}

	post, err := h.service.UpdatePost(r.Context(), session, id, payload)
	if err != nil {
		msgs := postErrors
		msgs.Internal = "Failed to update post"
		writeServiceError(w, r, err, msgs)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Post updated successfully",
		"post":    post,
	})
}

// Toggle flips a post between draft and published.
func (h *PostHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	post, err := h.service.TogglePublished(r.Context(), session, id)
	if err != nil {
		msgs := postErrors
		msgs.Internal = "Failed to toggle post"
		writeServiceError(w, r, err, msgs)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Post visibility updated",
		"post":    post,
	})
}

// Delete handles the permanent deletion of a post.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	if err := h.service.DeletePost(r.Context(), session, id); err != nil {
		msgs := postErrors
		msgs.Internal = "Failed to delete post"
		writeServiceError(w, r, err, msgs)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"message": "Post deleted successfully"})
}
