package models

import "time"

// Role is the authorization level of a user account.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents a user account in the system.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never expose this to the client
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Role         Role      `json:"role"`
	IsPremium    bool      `json:"isPremium"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserCounts carries the number of posts and comments a user owns.
type UserCounts struct {
	Posts    int `json:"posts"`
	Comments int `json:"comments"`
}

// UserWithCounts is the admin listing shape for users.
type UserWithCounts struct {
	User
	Count UserCounts `json:"_count"`
}

// UserDetail is the admin view of a single user including their content.
type UserDetail struct {
	User
	Posts    []PostSummary `json:"posts"`
	Comments []Comment     `json:"comments"`
}

// AuthorSummary is the public projection of a user attached to posts and comments.
type AuthorSummary struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}
