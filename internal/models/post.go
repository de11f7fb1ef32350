package models

import "time"

// Category classifies a post.
type Category string

const (
	CategoryCodeTutorial Category = "CODE_TUTORIAL"
	CategoryPentesting   Category = "PENTESTING"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == CategoryCodeTutorial || c == CategoryPentesting
}

// PostFile is a named attachment linked from a post.
type PostFile struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Post is a tutorial or article. Unpublished posts are drafts.
type Post struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Slug        string        `json:"slug"`
	Content     string        `json:"content"`
	Category    Category      `json:"category"`
	Excerpt     string        `json:"excerpt,omitempty"`
	IsPublished bool          `json:"isPublished"`
	AuthorID    string        `json:"authorId"`
	Author      AuthorSummary `json:"author"`
	Files       []PostFile    `json:"files"`
	Comments    []Comment     `json:"comments,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// PostSummary is the compact post reference attached to comments and users.
type PostSummary struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Slug        string   `json:"slug"`
	Category    Category `json:"category,omitempty"`
	IsPublished bool     `json:"isPublished"`
}
