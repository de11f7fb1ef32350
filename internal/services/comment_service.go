package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/devsec-blog-be/internal/auth"
	"github.com/isdelr/devsec-blog-be/internal/models"
	"github.com/isdelr/devsec-blog-be/internal/validation"
)

// MaxCommentLength is the maximum comment length in characters.
const MaxCommentLength = 1000

// CreateCommentInput is the schema for posting a comment.
type CreateCommentInput struct {
	PostID  string `json:"postId" validate:"required"`
	Content string `json:"content" validate:"required,min=1,max=1000"`
}

// ValidationMessages implements validation.Messenger.
func (CreateCommentInput) ValidationMessages() map[string]string {
	return commentMessages(map[string]string{"postId.required": "Post ID is required"})
}

// UpdateCommentInput is the schema for editing a comment.
type UpdateCommentInput struct {
	Content string `json:"content" validate:"required,min=1,max=1000"`
}

// ValidationMessages implements validation.Messenger.
func (UpdateCommentInput) ValidationMessages() map[string]string {
	return commentMessages(nil)
}

func commentMessages(extra map[string]string) map[string]string {
	m := map[string]string{
		"content.required": "Content is required",
		"content.min":      "Comment must be between 1 and 1000 characters",
		"content.max":      "Comment must be between 1 and 1000 characters",
	}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

// CommentServiceProvider defines the interface for comment services.
type CommentServiceProvider interface {
	CreateComment(ctx context.Context, actor auth.Session, in CreateCommentInput) (models.Comment, error)
	GetAllComments(ctx context.Context) ([]models.Comment, error)
	GetCommentsByAuthor(ctx context.Context, authorID string) ([]models.Comment, error)
	UpdateComment(ctx context.Context, actor auth.Session, id string, in UpdateCommentInput) (models.Comment, error)
	DeleteComment(ctx context.Context, actor auth.Session, id string) error
}

// CommentService provides business logic for comments.
type CommentService struct {
	db       *sql.DB
	validate *validation.Validator
	events   EventServiceProvider
	now      func() time.Time
}

// NewCommentService creates a new CommentService.
func NewCommentService(db *sql.DB, validate *validation.Validator, events EventServiceProvider) *CommentService {
	return &CommentService{db: db, validate: validate, events: events, now: time.Now}
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

const commentSelect = `
	SELECT c.id, c.content, c.author_id, c.post_id, c.created_at, c.updated_at,
	       u.username, u.first_name, u.last_name,
	       p.title, p.slug, p.category, p.is_published
	FROM comments c
	JOIN users u ON u.id = c.author_id
	JOIN posts p ON p.id = c.post_id `

// queryComments loads comments with their author and post summaries, newest first.
func queryComments(ctx context.Context, q querier, where string, args ...interface{}) ([]models.Comment, error) {
	rows, err := q.QueryContext(ctx, commentSelect+where+" ORDER BY c.created_at DESC, c.id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		author := &models.AuthorSummary{}
		post := &models.PostSummary{}
		if err := rows.Scan(&c.ID, &c.Content, &c.AuthorID, &c.PostID, &c.CreatedAt, &c.UpdatedAt,
			&author.Username, &author.FirstName, &author.LastName,
			&post.Title, &post.Slug, &post.Category, &post.IsPublished); err != nil {
			return nil, err
		}
		author.ID = c.AuthorID
		post.ID = c.PostID
		c.Author = author
		c.Post = post
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (s *CommentService) getComment(ctx context.Context, id string) (models.Comment, error) {
	comments, err := queryComments(ctx, s.db, "WHERE c.id = ?", id)
	if err != nil {
		return models.Comment{}, err
	}
	if len(comments) == 0 {
		return models.Comment{}, ErrNotFound
	}
	return comments[0], nil
}

// CreateComment adds a comment to a post. Drafts only accept comments from admins.
func (s *CommentService) CreateComment(ctx context.Context, actor auth.Session, in CreateCommentInput) (models.Comment, error) {
	in.PostID = strings.TrimSpace(in.PostID)
	in.Content = strings.TrimSpace(in.Content)
	if err := s.validate.Struct(&in); err != nil {
		return models.Comment{}, err
	}

	var published bool
	err := s.db.QueryRowContext(ctx, "SELECT is_published FROM posts WHERE id = ?", in.PostID).Scan(&published)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Comment{}, ErrNotFound
		}
		return models.Comment{}, fmt.Errorf("failed to load post: %w", err)
	}
	if !published && !actor.IsAdmin() {
		return models.Comment{}, ErrPostNotPublished
	}

	now := s.now().UTC()
	id := uuid.New().String()
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO comments (id, content, author_id, post_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		id, in.Content, actor.ID, in.PostID, now, now)
	if err != nil {
		return models.Comment{}, fmt.Errorf("failed to insert comment: %w", err)
	}
	return s.getComment(ctx, id)
}

// GetAllComments returns every comment across all posts, newest first.
func (s *CommentService) GetAllComments(ctx context.Context) ([]models.Comment, error) {
	return queryComments(ctx, s.db, "")
}

// GetCommentsByAuthor returns the comments written by authorID, newest first.
func (s *CommentService) GetCommentsByAuthor(ctx context.Context, authorID string) ([]models.Comment, error) {
	return queryComments(ctx, s.db, "WHERE c.author_id = ?", authorID)
}

// UpdateComment replaces a comment's content. Admin only.
func (s *CommentService) UpdateComment(ctx context.Context, actor auth.Session, id string, in UpdateCommentInput) (models.Comment, error) {
	if !actor.IsAdmin() {
		return models.Comment{}, ErrForbidden
	}
	in.Content = strings.TrimSpace(in.Content)
	if err := s.validate.Struct(&in); err != nil {
		return models.Comment{}, err
	}

	res, err := s.db.ExecContext(ctx, "UPDATE comments SET content = ?, updated_at = ? WHERE id = ?", in.Content, s.now().UTC(), id)
	if err != nil {
		return models.Comment{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.Comment{}, ErrNotFound
	}
	return s.getComment(ctx, id)
}

// DeleteComment removes a comment. Only admins and the comment's author may do so.
func (s *CommentService) DeleteComment(ctx context.Context, actor auth.Session, id string) error {
	var authorID string
	err := s.db.QueryRowContext(ctx, "SELECT author_id FROM comments WHERE id = ?", id).Scan(&authorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load comment: %w", err)
	}
	if !actor.IsAdmin() && authorID != actor.ID {
		return ErrForbidden
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM comments WHERE id = ?", id); err != nil {
		return err
	}
	if authorID != actor.ID {
		record(ctx, s.events, "comment.delete", LevelWarn, fmt.Sprintf("Comment %s removed by moderator.", id), actor.ID)
	}
	return nil
}
