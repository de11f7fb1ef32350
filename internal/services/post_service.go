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
	"github.com/isdelr/devsec-blog-be/internal/slug"
	"github.com/isdelr/devsec-blog-be/internal/validation"
)

// FileInput is an attachment reference supplied with a post.
type FileInput struct {
	Name string `json:"name" validate:"required,max=255"`
	URL  string `json:"url" validate:"required,max=2048"`
}

// CreatePostInput is the schema for creating a post.
type CreatePostInput struct {
	Title       string          `json:"title" validate:"required,min=3,max=100"`
	Content     string          `json:"content" validate:"required,min=10"`
	Category    models.Category `json:"category" validate:"required,oneof=CODE_TUTORIAL PENTESTING"`
	Excerpt     string          `json:"excerpt" validate:"max=200"`
	IsPublished bool            `json:"isPublished"`
	Files       []FileInput     `json:"files" validate:"max=50,dive"`
}

func (in *CreatePostInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.Category = models.Category(strings.TrimSpace(string(in.Category)))
	in.Excerpt = strings.TrimSpace(in.Excerpt)
	normalizeFiles(in.Files)
}

// ValidationMessages implements validation.Messenger.
func (CreatePostInput) ValidationMessages() map[string]string {
	return postMessages
}

// UpdatePostInput is the schema for updating a post. Nil fields are left
// untouched. Files, when present, replaces the post's entire file set.
type UpdatePostInput struct {
	Title       *string          `json:"title" validate:"omitempty,min=3,max=100"`
	Content     *string          `json:"content" validate:"omitempty,min=10"`
	Category    *models.Category `json:"category" validate:"omitempty,oneof=CODE_TUTORIAL PENTESTING"`
	Excerpt     *string          `json:"excerpt" validate:"omitempty,max=200"`
	IsPublished *bool            `json:"isPublished"`
	Files       *[]FileInput     `json:"files" validate:"omitempty,max=50,dive"`

	// UpdateCreatedAt resets createdAt to the update time when this update
	// publishes a draft.
	UpdateCreatedAt bool `json:"updateCreatedAt"`
}

func (in *UpdatePostInput) normalize() {
	trimPtr := func(s *string) {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
	trimPtr(in.Title)
	trimPtr(in.Content)
	trimPtr(in.Excerpt)
	if in.Category != nil {
		c := models.Category(strings.TrimSpace(string(*in.Category)))
		in.Category = &c
	}
	if in.Files != nil {
		normalizeFiles(*in.Files)
	}
}

// ValidationMessages implements validation.Messenger.
func (UpdatePostInput) ValidationMessages() map[string]string {
	return postMessages
}

var postMessages = map[string]string{
	"title.required":    "Title is required",
	"title.min":         "Title must be between 3 and 100 characters",
	"title.max":         "Title must be between 3 and 100 characters",
	"content.required":  "Content is required",
	"content.min":       "Content must be at least 10 characters",
	"category.required": "Category is required",
	"category.oneof":    "Invalid category",
	"excerpt.max":       "Excerpt must not exceed 200 characters",
	"files.max":         "A post can have at most 50 files",
	"name.required":     "File name is required",
	"name.max":          "File name must not exceed 255 characters",
	"url.required":      "File URL is required",
	"url.max":           "File URL must not exceed 2048 characters",
}

func normalizeFiles(files []FileInput) {
	for i := range files {
		files[i].Name = strings.TrimSpace(files[i].Name)
		files[i].URL = strings.TrimSpace(files[i].URL)
	}
}

// PostFilter narrows post listings.
type PostFilter struct {
	Category    models.Category
	Limit       int
	IsPublished *bool
}

// PostServiceProvider defines the interface for post services.
type PostServiceProvider interface {
	CreatePost(ctx context.Context, actor auth.Session, in CreatePostInput) (models.Post, error)
	ListPublishedPosts(ctx context.Context, filter PostFilter) ([]models.Post, error)
	ListAllPosts(ctx context.Context, filter PostFilter) ([]models.Post, error)
	GetPost(ctx context.Context, identifier string, includeDrafts bool) (models.Post, error)
	UpdatePost(ctx context.Context, actor auth.Session, id string, in UpdatePostInput) (models.Post, error)
	TogglePublished(ctx context.Context, actor auth.Session, id string) (models.Post, error)
	DeletePost(ctx context.Context, actor auth.Session, id string) error
}

// PostService provides business logic for the post lifecycle.
type PostService struct {
	db       *sql.DB
	validate *validation.Validator
	events   EventServiceProvider
	now      func() time.Time
}

// NewPostService creates a new PostService.
func NewPostService(db *sql.DB, validate *validation.Validator, events EventServiceProvider) *PostService {
	return &PostService{db: db, validate: validate, events: events, now: time.Now}
}

const postSelect = `
	SELECT p.id, p.title, p.slug, p.content, p.category, p.excerpt, p.is_published,
	       p.author_id, p.created_at, p.updated_at,
	       u.username, u.first_name, u.last_name
	FROM posts p
	JOIN users u ON u.id = p.author_id `

func scanPost(scanner interface{ Scan(...interface{}) error }) (models.Post, error) {
	var p models.Post
	var excerpt sql.NullString
	err := scanner.Scan(&p.ID, &p.Title, &p.Slug, &p.Content, &p.Category, &excerpt, &p.IsPublished,
		&p.AuthorID, &p.CreatedAt, &p.UpdatedAt,
		&p.Author.Username, &p.Author.FirstName, &p.Author.LastName)
	if err != nil {
		return models.Post{}, err
	}
	p.Excerpt = excerpt.String
	p.Author.ID = p.AuthorID
	p.Files = []models.PostFile{}
	return p, nil
}

// reservedSlugs shadow static routes under /api/posts.
var reservedSlugs = map[string]bool{"admin": true}

// deriveSlug turns a title into a slug and makes sure no other post owns it.
func (s *PostService) deriveSlug(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}, title, exceptID string) (string, error) {
	postSlug := slug.Make(title)
	if postSlug == "" {
		return "", validation.NewError(validation.FieldError{Field: "title", Message: "Title must contain at least one letter or number"})
	}
	if reservedSlugs[postSlug] {
		return "", validation.NewError(validation.FieldError{Field: "title", Message: "This title is reserved"})
	}

	var count int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts WHERE slug = ? AND id <> ?", postSlug, exceptID).Scan(&count); err != nil {
		return "", fmt.Errorf("failed to check slug: %w", err)
	}
	if count > 0 {
		return "", slugConflict()
	}
	return postSlug, nil
}

func slugConflict() error {
	return validation.NewError(validation.FieldError{Field: "title", Message: "A post with this title already exists"})
}

func nullableExcerpt(excerpt string) interface{} {
	if excerpt == "" {
		return nil
	}
	return excerpt
}

// CreatePost creates a post authored by actor, as a draft unless IsPublished is set.
func (s *PostService) CreatePost(ctx context.Context, actor auth.Session, in CreatePostInput) (models.Post, error) {
	if !actor.IsAdmin() {
		return models.Post{}, ErrForbidden
	}
	in.normalize()
	if err := s.validate.Struct(&in); err != nil {
		return models.Post{}, err
	}

	postSlug, err := s.deriveSlug(ctx, s.db, in.Title, "")
	if err != nil {
		return models.Post{}, err
	}

	now := s.now().UTC()
	id := uuid.New().String()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Post{}, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO posts (id, title, slug, content, category, excerpt, is_published, author_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.Title, postSlug, in.Content, in.Category, nullableExcerpt(in.Excerpt), in.IsPublished, actor.ID, now, now)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return models.Post{}, slugConflict()
		}
		return models.Post{}, fmt.Errorf("failed to insert post: %w", err)
	}

	if err := replaceFiles(ctx, tx, id, in.Files); err != nil {
		return models.Post{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Post{}, err
	}

	state := "draft"
	if in.IsPublished {
		state = "published"
	}
	record(ctx, s.events, "post.create", LevelInfo, fmt.Sprintf("Post '%s' created (%s).", in.Title, state), actor.ID)
	return s.GetPost(ctx, id, true)
}

// replaceFiles swaps the whole file set of a post. It must run inside the
// transaction that owns the post write.
func replaceFiles(ctx context.Context, tx *sql.Tx, postID string, files []FileInput) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM post_files WHERE post_id = ?", postID); err != nil {
		return fmt.Errorf("failed to clear files: %w", err)
	}
	for i, f := range files {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO post_files (id, post_id, name, url, position) VALUES (?, ?, ?, ?, ?)",
			uuid.New().String(), postID, f.Name, f.URL, i)
		if err != nil {
			return fmt.Errorf("failed to insert file: %w", err)
		}
	}
	return nil
}

// ListPublishedPosts returns published posts only, newest first.
func (s *PostService) ListPublishedPosts(ctx context.Context, filter PostFilter) ([]models.Post, error) {
	published := true
	filter.IsPublished = &published
	return s.listPosts(ctx, filter)
}

// ListAllPosts returns drafts and published posts, newest first.
func (s *PostService) ListAllPosts(ctx context.Context, filter PostFilter) ([]models.Post, error) {
	return s.listPosts(ctx, filter)
}

func (s *PostService) listPosts(ctx context.Context, filter PostFilter) ([]models.Post, error) {
	var where []string
	var args []interface{}
	if filter.Category != "" {
		if !filter.Category.Valid() {
			return nil, validation.NewError(validation.FieldError{Field: "category", Message: "Invalid category"})
		}
		where = append(where, "p.category = ?")
		args = append(args, filter.Category)
	}
	if filter.IsPublished != nil {
		where = append(where, "p.is_published = ?")
		args = append(args, *filter.IsPublished)
	}

	query := postSelect
	if len(where) > 0 {
		query += "WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY p.created_at DESC, p.id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.attachFiles(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *PostService) attachFiles(ctx context.Context, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	index := make(map[string]int, len(posts))
	placeholders := make([]string, len(posts))
	args := make([]interface{}, len(posts))
	for i, p := range posts {
		index[p.ID] = i
		placeholders[i] = "?"
		args[i] = p.ID
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, post_id, name, url FROM post_files WHERE post_id IN ("+strings.Join(placeholders, ", ")+") ORDER BY position", args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var f models.PostFile
		var postID string
		if err := rows.Scan(&f.ID, &postID, &f.Name, &f.URL); err != nil {
			return err
		}
		if i, ok := index[postID]; ok {
			posts[i].Files = append(posts[i].Files, f)
		}
	}
	return rows.Err()
}

// GetPost resolves identifier as a post id or slug. Without includeDrafts an
// unpublished post is reported as ErrNotFound, same as a missing one.
func (s *PostService) GetPost(ctx context.Context, identifier string, includeDrafts bool) (models.Post, error) {
	query := postSelect + "WHERE (p.id = ? OR p.slug = ?)"
	if !includeDrafts {
		query += " AND p.is_published = TRUE"
	}
	// An id match wins over a slug match.
	query += " ORDER BY (p.id = ?) DESC LIMIT 1"

	post, err := scanPost(s.db.QueryRowContext(ctx, query, identifier, identifier, identifier))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Post{}, ErrNotFound
		}
		return models.Post{}, err
	}

	posts := []models.Post{post}
	if err := s.attachFiles(ctx, posts); err != nil {
		return models.Post{}, err
	}
	post = posts[0]

	post.Comments, err = queryComments(ctx, s.db, "WHERE c.post_id = ?", post.ID)
	if err != nil {
		return models.Post{}, err
	}
	for i := range post.Comments {
		post.Comments[i].Post = nil
	}
	return post, nil
}

// UpdatePost applies a partial update. Changing the title re-derives the slug.
// Publishing a draft with UpdateCreatedAt set moves createdAt to now.
func (s *PostService) UpdatePost(ctx context.Context, actor auth.Session, id string, in UpdatePostInput) (models.Post, error) {
	if !actor.IsAdmin() {
		return models.Post{}, ErrForbidden
	}
	in.normalize()
	if err := s.validate.Struct(&in); err != nil {
		return models.Post{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Post{}, err
	}
	defer tx.Rollback()

	var title string
	var wasPublished bool
	err = tx.QueryRowContext(ctx, "SELECT title, is_published FROM posts WHERE id = ?", id).Scan(&title, &wasPublished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Post{}, ErrNotFound
		}
		return models.Post{}, fmt.Errorf("failed to load post: %w", err)
	}

	now := s.now().UTC()
	sets := []string{"updated_at = ?"}
	args := []interface{}{now}

	if in.Title != nil {
		postSlug, err := s.deriveSlug(ctx, tx, *in.Title, id)
		if err != nil {
			return models.Post{}, err
		}
		title = *in.Title
		sets = append(sets, "title = ?", "slug = ?")
		args = append(args, *in.Title, postSlug)
	}
	if in.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *in.Content)
	}
	if in.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *in.Category)
	}
	if in.Excerpt != nil {
		sets = append(sets, "excerpt = ?")
		args = append(args, nullableExcerpt(*in.Excerpt))
	}
	publishing := in.IsPublished != nil && *in.IsPublished && !wasPublished
	unpublishing := in.IsPublished != nil && !*in.IsPublished && wasPublished
	if in.IsPublished != nil {
		sets = append(sets, "is_published = ?")
		args = append(args, *in.IsPublished)
	}
	if publishing && in.UpdateCreatedAt {
		sets = append(sets, "created_at = ?")
		args = append(args, now)
	}

	args = append(args, id)
	if _, err := tx.ExecContext(ctx, "UPDATE posts SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...); err != nil {
		if _, ok := uniqueViolation(err); ok {
			return models.Post{}, slugConflict()
		}
		return models.Post{}, fmt.Errorf("failed to update post: %w", err)
	}

	if in.Files != nil {
		if err := replaceFiles(ctx, tx, id, *in.Files); err != nil {
			return models.Post{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return models.Post{}, err
	}

	switch {
	case publishing:
		record(ctx, s.events, "post.publish", LevelInfo, fmt.Sprintf("Post '%s' published.", title), actor.ID)
	case unpublishing:
		record(ctx, s.events, "post.unpublish", LevelInfo, fmt.Sprintf("Post '%s' moved back to drafts.", title), actor.ID)
	default:
		record(ctx, s.events, "post.update", LevelInfo, fmt.Sprintf("Post '%s' updated.", title), actor.ID)
	}
	return s.GetPost(ctx, id, true)
}

// TogglePublished flips a post between draft and published without touching
// any other column, timestamps included.
func (s *PostService) TogglePublished(ctx context.Context, actor auth.Session, id string) (models.Post, error) {
	if !actor.IsAdmin() {
		return models.Post{}, ErrForbidden
	}
	res, err := s.db.ExecContext(ctx, "UPDATE posts SET is_published = NOT is_published WHERE id = ?", id)
	if err != nil {
		return models.Post{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.Post{}, ErrNotFound
	}

	post, err := s.GetPost(ctx, id, true)
	if err != nil {
		return models.Post{}, err
	}
	record(ctx, s.events, "post.toggle", LevelInfo,
		fmt.Sprintf("Post '%s' visibility set to published=%t.", post.Title, post.IsPublished), actor.ID)
	return post, nil
}

// DeletePost permanently removes a post with its comments and files.
func (s *PostService) DeletePost(ctx context.Context, actor auth.Session, id string) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	var title string
	if err := s.db.QueryRowContext(ctx, "SELECT title FROM posts WHERE id = ?", id).Scan(&title); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM posts WHERE id = ?", id); err != nil {
		return err
	}
	record(ctx, s.events, "post.delete", LevelWarn, fmt.Sprintf("Post '%s' was deleted.", title), actor.ID)
	return nil
}
