package models

import "time"

// Event represents a recorded administrative action.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`  // e.g., "post.publish", "user.update"
	Level     string    `json:"level"` // e.g., "info", "warn"
	Message   string    `json:"message"`
	ActorID   *string   `json:"actorId,omitempty"` // Nullable for system events
	CreatedAt time.Time `json:"createdAt"`
}

// DashboardStats summarizes the content of the site for the admin dashboard.
type DashboardStats struct {
	Users          int     `json:"users"`
	Posts          int     `json:"posts"`
	PublishedPosts int     `json:"publishedPosts"`
	Drafts         int     `json:"drafts"`
	Comments       int     `json:"comments"`
	RecentEvents   []Event `json:"recentEvents"`
}
