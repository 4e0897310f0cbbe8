package repository

import (
	"context"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository defines the interface for notification data
// operations. Every read and mutation is scoped to the recipient so one
// user can never touch another's notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByRecipient(ctx context.Context, recipientID uint, limit, offset int, unreadOnly bool) ([]*models.Notification, error)
	UnreadCount(ctx context.Context, recipientID uint) (int64, error)
	MarkRead(ctx context.Context, id, recipientID uint) error
	MarkReadBatch(ctx context.Context, recipientID uint, ids []uint) (int64, error)
	MarkAllRead(ctx context.Context, recipientID uint) (int64, error)
	Delete(ctx context.Context, id, recipientID uint) error
	DeleteAll(ctx context.Context, recipientID uint) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateUnreadCount(ctx, n.RecipientID)
	// Reload with the sender so the realtime payload carries a full profile
	if err := r.db.WithContext(ctx).Preload("Sender").First(n, n.ID).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID uint, limit, offset int, unreadOnly bool) ([]*models.Notification, error) {
	var notifications []*models.Notification
	query := r.db.WithContext(ctx).
		Preload("Sender").
		Where("recipient_id = ?", recipientID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&notifications).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return notifications, nil
}

func (r *notificationRepository) UnreadCount(ctx context.Context, recipientID uint) (int64, error) {
	var count int64
	key := cache.UnreadCountKey(recipientID)
	err := cache.Aside(ctx, key, &count, cache.UnreadCountTTL, func() error {
		return r.db.WithContext(ctx).
			Model(&models.Notification{}).
			Where("recipient_id = ? AND is_read = ?", recipientID, false).
			Count(&count).Error
	})
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

// MarkRead is idempotent; marking an already-read notification keeps its
// original read_at.
func (r *notificationRepository) MarkRead(ctx context.Context, id, recipientID uint) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ? AND is_read = ?", id, recipientID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": &now})
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		// Distinguish missing from already-read
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&models.Notification{}).
			Where("id = ? AND recipient_id = ?", id, recipientID).
			Count(&count).Error; err != nil {
			return models.NewInternalError(err)
		}
		if count == 0 {
			return models.NewNotFoundError("Notification", id)
		}
		return nil
	}
	cache.InvalidateUnreadCount(ctx, recipientID)
	return nil
}

// MarkReadBatch marks the given ids as read for the recipient. Ids that do
// not belong to the recipient are silently skipped.
func (r *notificationRepository) MarkReadBatch(ctx context.Context, recipientID uint, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id IN ? AND recipient_id = ? AND is_read = ?", ids, recipientID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": &now})
	if result.Error != nil {
		return 0, models.NewInternalError(result.Error)
	}
	cache.InvalidateUnreadCount(ctx, recipientID)
	return result.RowsAffected, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID uint) (int64, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": &now})
	if result.Error != nil {
		return 0, models.NewInternalError(result.Error)
	}
	cache.InvalidateUnreadCount(ctx, recipientID)
	return result.RowsAffected, nil
}

func (r *notificationRepository) Delete(ctx context.Context, id, recipientID uint) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Notification", id)
	}
	cache.InvalidateUnreadCount(ctx, recipientID)
	return nil
}

func (r *notificationRepository) DeleteAll(ctx context.Context, recipientID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, models.NewInternalError(result.Error)
	}
	cache.InvalidateUnreadCount(ctx, recipientID)
	return result.RowsAffected, nil
}

// DeleteOlderThan purges notifications created before the cutoff. Called by
// the retention sweeper.
func (r *notificationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, models.NewInternalError(result.Error)
	}
	return result.RowsAffected, nil
}
