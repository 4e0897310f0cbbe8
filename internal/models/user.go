// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// User is the thin profile record the engagement subsystem needs: display
// fields for notification rendering and the moderation flags. Account
// management itself lives in the identity service.
type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Username    string         `gorm:"uniqueIndex;not null" json:"username"`
	DisplayName string         `json:"display_name"`
	Avatar      string         `json:"avatar"`
	IsAdmin     bool           `gorm:"default:false" json:"is_admin"`
	IsModerator bool           `gorm:"default:false" json:"is_moderator"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// Name returns the user's preferred display string.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// Follow records that FollowerID follows FolloweeID. The pair is unique;
// repeated follow requests are idempotent upserts.
type Follow struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FollowerID uint      `gorm:"not null;uniqueIndex:idx_follower_followee" json:"follower_id"`
	FolloweeID uint      `gorm:"not null;uniqueIndex:idx_follower_followee;index" json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`
}
