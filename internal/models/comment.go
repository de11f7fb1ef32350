package models

import "time"

// Comment is a reply attached to a post.
type Comment struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	AuthorID  string         `json:"authorId"`
	PostID    string         `json:"postId"`
	Author    *AuthorSummary `json:"author,omitempty"`
	Post      *PostSummary   `json:"post,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}
