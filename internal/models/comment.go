// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// CommentDeletedPlaceholder is what API projections show for a soft-deleted
// comment. The stored content is retained so moderation can review it.
const CommentDeletedPlaceholder = "[comment deleted]"

const (
	// MinCommentLength and MaxCommentLength bound comment content in characters.
	MinCommentLength = 1
	MaxCommentLength = 1000
)

// Comment represents a comment on a post. A nil ParentCommentID marks a root
// comment; replies reference a parent on the same post. Soft-deleted comments
// keep their id and tree position so replies are never orphaned.
type Comment struct {
	ID              uint     `gorm:"primaryKey" json:"id"`
	Content         string   `gorm:"type:text;not null" json:"-"`
	AuthorID        uint     `gorm:"not null;index" json:"author_id"`
	Author          User     `gorm:"foreignKey:AuthorID" json:"author"`
	PostID          uint     `gorm:"not null;index" json:"post_id"`
	ParentCommentID *uint    `gorm:"index" json:"parent_comment_id"`
	IsDeleted       bool     `gorm:"default:false;index" json:"is_deleted"`
	IsReported      bool     `gorm:"default:false" json:"is_reported"`
	ReportReason    string   `json:"-"`
	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"->" json:"likes_count"`
	// Liked indicates whether the current requesting user liked this comment (computed)
	Liked     bool      `gorm:"->" json:"liked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayContent returns the content as it should appear to readers,
// masking soft-deleted comments with the moderation placeholder.
func (c *Comment) DisplayContent() string {
	if c.IsDeleted {
		return CommentDeletedPlaceholder
	}
	return c.Content
}

// CommentLike is one user's like on a comment. (user_id, comment_id) is
// unique; the toggle relies on conflict-free atomic inserts.
type CommentLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_comment_like_pair" json:"user_id"`
	CommentID uint      `gorm:"not null;uniqueIndex:idx_comment_like_pair;index" json:"comment_id"`
	CreatedAt time.Time `json:"created_at"`
}
