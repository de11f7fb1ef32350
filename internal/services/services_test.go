package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/isdelr/devsec-blog-be/internal/auth"
	"github.com/isdelr/devsec-blog-be/internal/database"
	"github.com/isdelr/devsec-blog-be/internal/models"
	"github.com/isdelr/devsec-blog-be/internal/validation"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "Sup3rSecret"

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type testEnv struct {
	db       *sql.DB
	clock    *fakeClock
	tokens   *auth.TokenManager
	events   *EventService
	users    *UserService
	posts    *PostService
	comments *CommentService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	validate := validation.New()
	tokens := auth.NewTokenManager("test-secret-with-at-least-32-bytes!!").WithClock(clock.Now)

	events := NewEventService(db, nil)
	events.now = clock.Now
	users := NewUserService(db, auth.NewHasher(bcrypt.MinCost), tokens, validate, events)
	users.now = clock.Now
	posts := NewPostService(db, validate, events)
	posts.now = clock.Now
	comments := NewCommentService(db, validate, events)
	comments.now = clock.Now

	return &testEnv{
		db:       db,
		clock:    clock,
		tokens:   tokens,
		events:   events,
		users:    users,
		posts:    posts,
		comments: comments,
	}
}

func registerInput(username string) RegisterInput {
	return RegisterInput{
		FirstName:       "Test",
		LastName:        "User",
		Username:        username,
		Email:           username + "@example.com",
		Password:        testPassword,
		ConfirmPassword: testPassword,
	}
}

// registerUser creates a regular account and returns its session.
func (e *testEnv) registerUser(t *testing.T, username string) auth.Session {
	t.Helper()
	res, err := e.users.Register(context.Background(), registerInput(username))
	require.NoError(t, err)
	return sessionOf(res.User)
}

// createAdmin provisions an ADMIN account and returns its session.
func (e *testEnv) createAdmin(t *testing.T, username string) auth.Session {
	t.Helper()
	user, err := e.users.CreateAdmin(context.Background(), registerInput(username), false)
	require.NoError(t, err)
	return sessionOf(user)
}

func (e *testEnv) createPost(t *testing.T, admin auth.Session, title string, published bool) models.Post {
	t.Helper()
	post, err := e.posts.CreatePost(context.Background(), admin, CreatePostInput{
		Title:       title,
		Content:     "Some content that is long enough.",
		Category:    models.CategoryCodeTutorial,
		IsPublished: published,
	})
	require.NoError(t, err)
	return post
}

func sessionOf(u models.User) auth.Session {
	return auth.Session{ID: u.ID, Email: u.Email, Username: u.Username, Role: u.Role, IsPremium: u.IsPremium}
}

// requireFieldError asserts err is a validation error naming field.
func requireFieldError(t *testing.T, err error, field string) {
	t.Helper()
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	for _, f := range verr.Fields {
		if f.Field == field {
			return
		}
	}
	t.Fatalf("no error for field %q in %v", field, verr.Fields)
}

func countRows(t *testing.T, db *sql.DB, query string, args ...interface{}) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(query, args...).Scan(&n))
	return n
}
