package auth

import (
	"context"

	"github.com/isdelr/devsec-blog-be/internal/models"
)

// Session is the authenticated identity attached to a request. It is built
// only from verified token claims.
type Session struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	Username  string      `json:"username"`
	Role      models.Role `json:"role"`
	IsPremium bool        `json:"isPremium"`
}

// IsAdmin reports whether the session carries the ADMIN role.
func (s Session) IsAdmin() bool {
	return s.Role == models.RoleAdmin
}

// SessionFromClaims converts verified claims into a Session.
func SessionFromClaims(c *Claims) Session {
	return Session{
		ID:        c.UserID,
		Email:     c.Email,
		Username:  c.Username,
		Role:      c.Role,
		IsPremium: c.IsPremium,
	}
}

type contextKey string

const sessionKey = contextKey("session")

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// FromContext returns the session stored in ctx, if any.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey).(Session)
	return s, ok
}
