package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/isdelr/devsec-blog-be/internal/api/respond"
	"github.com/isdelr/devsec-blog-be/internal/services"
	"github.com/rs/zerolog/log"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// AdminHandler serves the admin dashboard and the health probe.
type AdminHandler struct {
	dashboard services.DashboardServiceProvider
	db        Pinger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(dashboard services.DashboardServiceProvider, db Pinger) *AdminHandler {
	return &AdminHandler{dashboard: dashboard, db: db}
}

// Dashboard returns content and account totals with the latest events.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboard.GetStats(r.Context())
	if err != nil {
		writeServiceError(w, r, err, errorMessages{Internal: "Failed to load dashboard"})
		return
	}
	respond.JSON(w, http.StatusOK, stats)
}

// Health reports whether the service and its database are up.
func (h *AdminHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		log.Error().Err(err).Msg("Health check failed")
		respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
