package services

import (
	"context"
	"database/sql"

	"github.com/isdelr/devsec-blog-be/internal/models"
)

// DashboardServiceProvider defines the interface for the admin dashboard.
type DashboardServiceProvider interface {
	GetStats(ctx context.Context) (models.DashboardStats, error)
}

// DashboardService aggregates site-wide counts for admins.
type DashboardService struct {
	db     *sql.DB
	events EventServiceProvider
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(db *sql.DB, events EventServiceProvider) *DashboardService {
	return &DashboardService{db: db, events: events}
}

// GetStats counts users, posts and comments and attaches the latest events.
func (s *DashboardService) GetStats(ctx context.Context) (models.DashboardStats, error) {
	var stats models.DashboardStats
	err := s.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM users),
		       (SELECT COUNT(*) FROM posts),
		       (SELECT COUNT(*) FROM posts WHERE is_published = TRUE),
		       (SELECT COUNT(*) FROM comments)`).
		Scan(&stats.Users, &stats.Posts, &stats.PublishedPosts, &stats.Comments)
	if err != nil {
		return models.DashboardStats{}, err
	}
	stats.Drafts = stats.Posts - stats.PublishedPosts

	stats.RecentEvents, err = s.events.GetRecentEvents(ctx, 10)
	if err != nil {
		return models.DashboardStats{}, err
	}
	return stats, nil
}
