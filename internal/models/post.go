// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// Post represents a blog post in the Inkwell application. The engagement
// subsystem only reads posts; authoring flows live in the content service.
type Post struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Title    string `gorm:"not null" json:"title"`
	Content  string `gorm:"type:text;not null" json:"content"`
	AuthorID uint   `gorm:"not null;index" json:"author_id"`
	Author   User   `gorm:"foreignKey:AuthorID" json:"author"`
	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"->" json:"likes_count"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int `gorm:"->" json:"comments_count"`
	// Liked indicates whether the current requesting user liked this post (computed)
	Liked     bool           `gorm:"->" json:"liked"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// PostLike is one user's like on a post. (user_id, post_id) is unique so the
// toggle can rely on conflict-free atomic inserts.
type PostLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_post_like_pair" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_post_like_pair;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Bookmark is one user's saved post. Same uniqueness contract as PostLike.
type Bookmark struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_bookmark_pair" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_bookmark_pair;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}
