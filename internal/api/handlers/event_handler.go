package handlers

import (
	"net/http"
	"strconv"

	"github.com/isdelr/devsec-blog-be/internal/api/respond"
	"github.com/isdelr/devsec-blog-be/internal/services"
)

// defaultEventLimit is used when no valid limit is requested.
const defaultEventLimit = 20

// maxEventLimit caps the number of events returned.
const maxEventLimit = 200

// EventHandler handles HTTP requests related to the audit trail.
type EventHandler struct {
	service services.EventServiceProvider
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(service services.EventServiceProvider) *EventHandler {
	return &EventHandler{service: service}
}

// GetRecent handles the request to get recent administrative events.
func (h *EventHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultEventLimit
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}

	events, err := h.service.GetRecentEvents(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, err, errorMessages{Internal: "Failed to retrieve events"})
		return
	}
	respond.JSON(w, http.StatusOK, events)
}
