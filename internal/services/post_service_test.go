package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/isdelr/devsec-blog-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func TestCreatePost_RequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	alice := env.registerUser(t, "alice")

	_, err := env.posts.CreatePost(context.Background(), alice, CreatePostInput{
		Title:    "Not Allowed",
		Content:  "This should never be stored.",
		Category: models.CategoryPentesting,
	})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, 0, countRows(t, env.db, "SELECT COUNT(*) FROM posts"))
}

func TestCreatePost_SlugAndFiles(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createAdmin(t, "root_admin")

	post, err := env.posts.CreatePost(context.Background(), admin, CreatePostInput{
		Title:    "  Hello, World! Ünïcode  ",
		Content:  "Some content that is long enough.",
		Category: models.CategoryCodeTutorial,
		Excerpt:  "short",
		Files: []FileInput{
			{Name: "b.pdf", URL: "/uploads/b.pdf"},
			{Name: "a.png", URL: "/uploads/a.png"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello, World! Ünïcode", post.Title)
	assert.Equal(t, "hello-world-unicode", post.Slug)
	assert.False(t, post.IsPublished)
	assert.Equal(t, admin.ID, post.Author.ID)
	assert.Equal(t, "root_admin", post.Author.Username)
	require.Len(t, post.Files, 2)
	assert.Equal(t, "b.pdf", post.Files[0].Name)
	assert.Equal(t, "a.png", post.Files[1].Name)
	assert.True(t, post.CreatedAt.Equal(env.clock.Now()))
}

func TestCreatePost_DuplicateSlug(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createAdmin(t, "root_admin")
	env.createPost(t, admin, "Intro to Go", true)

	_, err := env.posts.CreatePost(context.Background(), admin, CreatePostInput{
		Title:    "intro to go!!",
		Content:  "Different content, same slug.",
		Category: models.CategoryCodeTutorial,
	})
	requireFieldError(t, err, "title")
	assert.Equal(t, 1, countRows(t, env.db, "SELECT COUNT(*) FROM posts"))
}

func TestCreatePost_ReservedSlug(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createAdmin(t, "root_admin")
	ctx := context.Background()

	_, err := env.posts.CreatePost(ctx, admin, CreatePostInput{
		Title:    "Admin",
		Content:  "A post whose slug would shadow a route.",
		Category: models.CategoryPentesting,
	})
	requireFieldError(t, err, "title")
	assert.Equal(t, 0, countRows(t, env.db, "SELECT COUNT(*) FROM posts"))

	post := env.createPost(t, admin, "Admin Tips", true)
	assert.Equal(t, "admin-tips", post.Slug)

	_, err = env.posts.UpdatePost(ctx, admin, post.ID, UpdatePostInput{Title: strPtr("ADMIN!")})
	requireFieldError(t, err, "title")

	got, err := env.posts.GetPost(ctx, post.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "admin-tips", got.Slug)
}

func TestCreatePost_Validation(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createAdmin(t, "root_admin")

	_, err := env.posts.CreatePost(context.Background(), admin, CreatePostInput{
		Title:    "Go",
		Content:  "short",
		Category: "COOKING",
		Excerpt:  strings.Repeat("x", 201),
		Files:    []FileInput{{Name: "", URL: "/uploads/x.png"}},
	})
	requireFieldError(t, err, "title")
	requireFieldError(t, err, "content")
	requireFieldError(t, err, "category")
	requireFieldError(t, err, "excerpt")
	requireFieldError(t, err, "files[0].name")

	_, err = env.posts.CreatePost(context.Background(), admin, CreatePostInput{
		Title:    "???",
		Content:  "Content long enough here.",
		Category: models.CategoryPentesting,
	})
	requireFieldError(t, err, "title")
}

func TestGetPost_DraftsLookMissing(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createAdmin(t, "root_admin")
	draft := env.createPost(t, admin, "Secret Draft", false)
	ctx := context.Background()

	_, errHidden := env.posts.GetPost(ctx, draft.ID, false)
	_, errHiddenSlug := env.posts.GetPost(ctx, draft.Slug, false)
	_, errMissing := env.posts.GetPost(ctx, "does-not-exist", false)
	assert.ErrorIs(t, errHidden, ErrNotFound)
	assert.ErrorIs(t, errHiddenSlug, ErrNotFound)
	assert.ErrorIs(t, errMissing, ErrNotFound)

	got, err := env.posts.GetPost(ctx, draft.Slug, true)
	require.NoError(t, err)
	assert.Equal(t, draft.ID, got.ID)
}

func TestGetPost_IncludesComments(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createAdmin(t, "root_admin")
	alice := env.registerUser(t, "alice")
	post := env.createPost(t, admin, "Commented Post", true)
	ctx := context.Background()

	_, err := env.comments.CreateComment(ctx, alice, CreateCommentInput{PostID: post.ID, Content: "First!"})
	require.NoError(t, err)

	got, err := env.posts.GetPost(ctx, post.Slug, false)
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "First!", got.Comments[0].Content)
	assert.Equal(t, "alice", got.Comments[0].Author.Username)
	assert.Nil(t, got.Comments[0].Post)
}

func TestUpdatePost_CreatedAtResetOnlyWithFlag(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createAdmin(t, "root_admin")
	withFlag := env.createPost(t, admin, "Draft With Flag", false)
	withoutFlag := env.createPost(t, admin, "Draft Without Flag", false)
	created := env.clock.Now()
	ctx := context.Background()

	env.clock.Advance(48 * time.Hour)
	published := env.clock.Now()

	got, err := env.posts.UpdatePost(ctx, admin, withFlag.ID, UpdatePostInput{IsPublished: boolPtr(true), UpdateCreatedAt: true})
	require.NoError(t, err)
	assert.True(t, got.IsPublished)
	assert.True(t, got.CreatedAt.Equal(published), "createdAt %v", got.CreatedAt)
	assert.True(t, got.UpdatedAt.Equal(published))

	got, err = env.posts.UpdatePost(ctx, admin, withoutFlag.ID, UpdatePostInput{IsPublished: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, got.IsPublished)
	assert.True(t, got.CreatedAt.Equal(created), "createdAt %v", got.CreatedAt)
	assert.True(t, got.UpdatedAt.Equal(published))

	// Already published: the flag has nothing to reset.
	env.clock.Advance(time.Hour)
	got, err = env.posts.UpdatePost(ctx, admin, withoutFlag.ID, UpdatePostInput{IsPublished: boolPtr(true), UpdateCreatedAt: true})
	require.NoError(t, err)
	assert.True(t, got.CreatedAt.Equal(created))
}

func TestUpdatePost_PartialFields(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createAdmin(t, "root_admin")
	post := env.createPost(t, admin, "Original Title", true)
	ctx := context.Background()

	got, err := env.posts.UpdatePost(ctx, admin, post.ID, UpdatePostInput{Title: strPtr("Brand New Title")})
	require.NoError(t, err)
	assert.Equal(t, "Brand New Title", got.Title)
	assert.Equal(t, "brand-new-title", got.Slug)
	assert.Equal(t, post.Content, got.Content)
	assert.Equal(t, post.Category, got.Category)
	assert.True(t, got.IsPublished)

	_, err = env.posts.UpdatePost(ctx, admin, post.ID, UpdatePostInput{Content: strPtr("tiny")})
	requireFieldError(t, err, "content")

	_, err = env.posts.UpdatePost(ctx, admin, "missing", UpdatePostInput{Content: strPtr("Long enough content.")})
	assert.ErrorIs(t, err, ErrNotFound)

	alice := env.registerUser(t, "alice")
	_, err = env.posts.UpdatePost(ctx, alice, post.ID, UpdatePostInput{Content: strPtr("Long enough content.")})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUpdatePost_FilesReplacement(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createAdmin(t, "root_admin")
	ctx := context.Background()

	post, err := env.posts.CreatePost(ctx, admin, CreatePostInput{
		Title:    "With Attachments",
		Content:  "Some content that is long enough.",
		Category: models.CategoryPentesting,
		Files:    []FileInput{{Name: "one.png", URL: "/uploads/one.png"}},
	})
	require.NoError(t, err)

	// Absent files leave the set untouched.
	got, err := env.posts.UpdatePost(ctx, admin, post.ID, UpdatePostInput{Excerpt: strPtr("updated")})
	require.NoError(t, err)
	require.Len(t, got.Files, 1)
	assert.Equal(t, "one.png", got.Files[0].Name)

	// A new set replaces the old one entirely.
	replacement := []FileInput{{Name: "two.png", URL: "/uploads/two.png"}, {Name: "three.pdf", URL: "/uploads/three.pdf"}}
	got, err = env.posts.UpdatePost(ctx, admin, post.ID, UpdatePostInput{Files: &replacement})
	require.NoError(t, err)
	require.Len(t, got.Files, 2)
	assert.Equal(t, "two.png", got.Files[0].Name)
	assert.Equal(t, "three.pdf", got.Files[1].Name)

	// An explicit empty set clears them.
	empty := []FileInput{}
	got, err = env.posts.UpdatePost(ctx, admin, post.ID, UpdatePostInput{Files: &empty})
	require.NoError(t, err)
	assert.Empty(t, got.Files)
	assert.Equal(t, 0, countRows(t, env.db, "SELECT COUNT(*) FROM post_files"))
}

func TestTogglePublished(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createAdmin(t, "root_admin")
	post := env.createPost(t, admin, "Toggle Me", false)
	ctx := context.Background()

	env.clock.Advance(time.Hour)
	got, err := env.posts.TogglePublished(ctx, admin, post.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPublished)
	assert.True(t, got.CreatedAt.Equal(post.CreatedAt))
	assert.True(t, got.UpdatedAt.Equal(post.UpdatedAt))

	got, err = env.posts.TogglePublished(ctx, admin, post.ID)
	require.NoError(t, err)
	assert.False(t, got.IsPublished)

	_, err = env.posts.TogglePublished(ctx, admin, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPosts_OrderAndFilters(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createAdmin(t, "root_admin")
	ctx := context.Background()

	env.createPost(t, admin, "Oldest Tutorial", true)
	env.clock.Advance(time.Minute)
	env.createPost(t, admin, "Hidden Draft", false)
	env.clock.Advance(time.Minute)
	_, err := env.posts.CreatePost(ctx, admin, CreatePostInput{
		Title:       "Newest Pentest",
		Content:     "Some content that is long enough.",
		Category:    models.CategoryPentesting,
		IsPublished: true,
	})
	require.NoError(t, err)

	published, err := env.posts.ListPublishedPosts(ctx, PostFilter{})
	require.NoError(t, err)
	require.Len(t, published, 2)
	assert.Equal(t, "Newest Pentest", published[0].Title)
	assert.Equal(t, "Oldest Tutorial", published[1].Title)

	tutorials, err := env.posts.ListPublishedPosts(ctx, PostFilter{Category: models.CategoryCodeTutorial})
	require.NoError(t, err)
	require.Len(t, tutorials, 1)
	assert.Equal(t, "Oldest Tutorial", tutorials[0].Title)

	limited, err := env.posts.ListPublishedPosts(ctx, PostFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "Newest Pentest", limited[0].Title)

	all, err := env.posts.ListAllPosts(ctx, PostFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	drafts, err := env.posts.ListAllPosts(ctx, PostFilter{IsPublished: boolPtr(false)})
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "Hidden Draft", drafts[0].Title)
}

func TestDeletePost_RemovesCommentsAndFiles(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createAdmin(t, "root_admin")
	alice := env.registerUser(t, "alice")
	ctx := context.Background()

	post, err := env.posts.CreatePost(ctx, admin, CreatePostInput{
		Title:       "Short Lived",
		Content:     "Some content that is long enough.",
		Category:    models.CategoryCodeTutorial,
		IsPublished: true,
		Files:       []FileInput{{Name: "x.png", URL: "/uploads/x.png"}},
	})
	require.NoError(t, err)
	_, err = env.comments.CreateComment(ctx, alice, CreateCommentInput{PostID: post.ID, Content: "bye"})
	require.NoError(t, err)

	assert.ErrorIs(t, env.posts.DeletePost(ctx, alice, post.ID), ErrForbidden)
	require.NoError(t, env.posts.DeletePost(ctx, admin, post.ID))

	assert.Equal(t, 0, countRows(t, env.db, "SELECT COUNT(*) FROM posts"))
	assert.Equal(t, 0, countRows(t, env.db, "SELECT COUNT(*) FROM comments"))
	assert.Equal(t, 0, countRows(t, env.db, "SELECT COUNT(*) FROM post_files"))
	assert.ErrorIs(t, env.posts.DeletePost(ctx, admin, post.ID), ErrNotFound)
}
