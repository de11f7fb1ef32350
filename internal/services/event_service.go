package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/devsec-blog-be/internal/models"
	"github.com/rs/zerolog/log"
)

// Event levels.
const (
	LevelInfo = "info"
	LevelWarn = "warn"
)

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	CreateEvent(ctx context.Context, eventType, level, message string, actorID *string) error
	GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error)
}

// EventPublisher receives every event after it has been stored.
type EventPublisher interface {
	PublishEvent(event models.Event)
}

// EventService records administrative actions.
type EventService struct {
	db        *sql.DB
	publisher EventPublisher
	now       func() time.Time
}

// NewEventService creates a new EventService. publisher may be nil.
func NewEventService(db *sql.DB, publisher EventPublisher) *EventService {
	return &EventService{db: db, publisher: publisher, now: time.Now}
}

// CreateEvent logs a new event to the database.
func (s *EventService) CreateEvent(ctx context.Context, eventType, level, message string, actorID *string) error {
	event := models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Level:     level,
		Message:   message,
		ActorID:   actorID,
		CreatedAt: s.now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (id, type, level, message, actor_id, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		event.ID, event.Type, event.Level, event.Message, event.ActorID, event.CreatedAt)
	if err != nil {
		return err
	}
	if s.publisher != nil {
		s.publisher.PublishEvent(event)
	}
	return nil
}

// GetRecentEvents retrieves the most recent events from the database.
func (s *EventService) GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, type, level, message, actor_id, created_at FROM events ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var event models.Event
		var actorID sql.NullString
		if err := rows.Scan(&event.ID, &event.Type, &event.Level, &event.Message, &actorID, &event.CreatedAt); err != nil {
			return nil, err
		}
		if actorID.Valid {
			event.ActorID = &actorID.String
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// record writes an event and only logs a failure; an audit miss never fails
// the action that triggered it.
func record(ctx context.Context, events EventServiceProvider, eventType, level, message string, actorID string) {
	if events == nil {
		return
	}
	var actor *string
	if actorID != "" {
		actor = &actorID
	}
	if err := events.CreateEvent(ctx, eventType, level, message, actor); err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Msg("Failed to record event")
	}
}
