// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// NotificationType enumerates the events that produce a notification.
type NotificationType string

const (
	NotificationFollow       NotificationType = "follow"
	NotificationPostLike     NotificationType = "post_like"
	NotificationPostComment  NotificationType = "post_comment"
	NotificationCommentLike  NotificationType = "comment_like"
	NotificationCommentReply NotificationType = "comment_reply"
	NotificationPostBookmark NotificationType = "post_bookmark"
	NotificationMention      NotificationType = "mention"
	NotificationAdminNotice  NotificationType = "admin_notice"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationFollow, NotificationPostLike, NotificationPostComment,
		NotificationCommentLike, NotificationCommentReply,
		NotificationPostBookmark, NotificationMention, NotificationAdminNotice:
		return true
	}
	return false
}

// NotificationRetention is how long notifications are kept before the sweep
// purges them.
const NotificationRetention = 30 * 24 * time.Hour

// Notification is a persisted, templated notice for one recipient. Title and
// message are derived at creation time, never user-supplied (admin notices
// excepted, where the admin is the author). recipient != sender always holds:
// self-notifications are suppressed before a record exists.
type Notification struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	RecipientID uint             `gorm:"not null;index" json:"recipient_id"`
	SenderID    uint             `gorm:"not null" json:"sender_id"`
	Sender      User             `gorm:"foreignKey:SenderID" json:"sender"`
	Type        NotificationType `gorm:"size:30;not null;index" json:"type"`
	PostID      *uint            `json:"post_id,omitempty"`
	CommentID   *uint            `json:"comment_id,omitempty"`
	Title       string           `gorm:"not null" json:"title"`
	Message     string           `gorm:"not null" json:"message"`
	IsRead      bool             `gorm:"default:false;index" json:"is_read"`
	ReadAt      *time.Time       `json:"read_at,omitempty"`
	CreatedAt   time.Time        `gorm:"index" json:"created_at"`
}

// NotificationExtra carries the per-type payload that feeds template
// rendering. Each notification type with extra data gets its own variant
// instead of an open-ended map; the union is consumed at render time and
// never persisted.
type NotificationExtra interface {
	notificationExtra()
}

// PostExtra accompanies post_like, post_comment and post_bookmark: the post
// title shown in the rendered message.
type PostExtra struct {
	PostTitle string
}

func (PostExtra) notificationExtra() {}

// CommentExtra accompanies comment_like, comment_reply and mention: a short
// excerpt of the comment involved.
type CommentExtra struct {
	Excerpt string
}

func (CommentExtra) notificationExtra() {}

// AdminNoticeExtra carries the caller-supplied title and message for
// admin_notice, which bypasses the template table.
type AdminNoticeExtra struct {
	Title   string
	Message string
}

func (AdminNoticeExtra) notificationExtra() {}
