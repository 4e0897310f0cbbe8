// Package service contains the business logic of the engagement subsystem.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/realtime"
	"inkwell/internal/repository"
)

// NotificationService derives persisted notifications from domain events and
// manages their read state. Creation is always fire-and-forget with respect
// to the triggering action.
type NotificationService struct {
	notificationRepo repository.NotificationRepository
	userRepo         repository.UserRepository
	broadcaster      realtime.Broadcaster
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(
	notificationRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	broadcaster realtime.Broadcaster,
) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		broadcaster:      broadcaster,
	}
}

// NotifyInput describes one domain event that may produce a notification.
type NotifyInput struct {
	RecipientID uint
	SenderID    uint
	Type        models.NotificationType
	PostID      *uint
	CommentID   *uint
	Extra       models.NotificationExtra
}

// Notify translates the event into zero-or-one persisted notification.
// Self-actions return (nil, nil) without persisting anything. The created
// record is emitted to the recipient's personal topic before returning.
func (s *NotificationService) Notify(ctx context.Context, in NotifyInput) (*models.Notification, error) {
	if in.RecipientID == in.SenderID {
		observability.NotificationsSuppressed.Inc()
		return nil, nil
	}
	if !in.Type.Valid() {
		return nil, models.NewValidationError(fmt.Sprintf("unknown notification type %q", in.Type))
	}

	sender, err := s.userRepo.GetByID(ctx, in.SenderID)
	if err != nil {
		return nil, err
	}

	title, message, err := renderNotification(in.Type, sender.Name(), in.Extra)
	if err != nil {
		return nil, err
	}

	n := &models.Notification{
		RecipientID: in.RecipientID,
		SenderID:    in.SenderID,
		Type:        in.Type,
		PostID:      in.PostID,
		CommentID:   in.CommentID,
		Title:       title,
		Message:     message,
	}
	if err := s.notificationRepo.Create(ctx, n); err != nil {
		return nil, err
	}
	observability.NotificationsCreated.WithLabelValues(string(in.Type)).Inc()

	if s.broadcaster != nil {
		// Lightweight notice for UI badges; the full record comes from a list call
		s.broadcaster.Emit(ctx, realtime.UserTopic(in.RecipientID), realtime.Event{
			Type: realtime.EventNewNotification,
			Payload: map[string]interface{}{
				"id":         n.ID,
				"type":       n.Type,
				"title":      n.Title,
				"message":    n.Message,
				"created_at": n.CreatedAt,
			},
		})
	}

	return n, nil
}

// renderNotification produces the templated title and message for a type.
// admin_notice bypasses the table and uses the caller-supplied text.
func renderNotification(t models.NotificationType, senderName string, extra models.NotificationExtra) (string, string, error) {
	switch t {
	case models.NotificationFollow:
		return "New Follower", fmt.Sprintf("%s started following you", senderName), nil
	case models.NotificationPostLike:
		return "Post Liked", fmt.Sprintf("%s liked your post %q", senderName, postTitle(extra)), nil
	case models.NotificationPostComment:
		return "New Comment", fmt.Sprintf("%s commented on your post %q", senderName, postTitle(extra)), nil
	case models.NotificationPostBookmark:
		return "Post Bookmarked", fmt.Sprintf("%s bookmarked your post %q", senderName, postTitle(extra)), nil
	case models.NotificationCommentLike:
		return "Comment Liked", fmt.Sprintf("%s liked your comment: %q", senderName, commentExcerpt(extra)), nil
	case models.NotificationCommentReply:
		return "New Reply", fmt.Sprintf("%s replied to your comment: %q", senderName, commentExcerpt(extra)), nil
	case models.NotificationMention:
		return "You Were Mentioned", fmt.Sprintf("%s mentioned you in a comment: %q", senderName, commentExcerpt(extra)), nil
	case models.NotificationAdminNotice:
		notice, ok := extra.(models.AdminNoticeExtra)
		if !ok || notice.Title == "" || notice.Message == "" {
			return "", "", models.NewValidationError("admin notice requires a title and message")
		}
		return notice.Title, notice.Message, nil
	}
	return "", "", models.NewValidationError(fmt.Sprintf("unknown notification type %q", t))
}

func postTitle(extra models.NotificationExtra) string {
	if e, ok := extra.(models.PostExtra); ok {
		return e.PostTitle
	}
	return ""
}

func commentExcerpt(extra models.NotificationExtra) string {
	if e, ok := extra.(models.CommentExtra); ok {
		return e.Excerpt
	}
	return ""
}

// NotificationPage is the list envelope: one page plus the live unread count.
type NotificationPage struct {
	Notifications []*models.Notification `json:"notifications"`
	UnreadCount   int64                  `json:"unread_count"`
	Page          int                    `json:"page"`
	PageSize      int                    `json:"page_size"`
}

// List returns the recipient's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, recipientID uint, page, pageSize int, unreadOnly bool) (*NotificationPage, error) {
	offset := (page - 1) * pageSize
	notifications, err := s.notificationRepo.ListByRecipient(ctx, recipientID, pageSize, offset, unreadOnly)
	if err != nil {
		return nil, err
	}
	unread, err := s.notificationRepo.UnreadCount(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	return &NotificationPage{
		Notifications: notifications,
		UnreadCount:   unread,
		Page:          page,
		PageSize:      pageSize,
	}, nil
}

// UnreadCount returns the number of unread notifications for the recipient.
func (s *NotificationService) UnreadCount(ctx context.Context, recipientID uint) (int64, error) {
	return s.notificationRepo.UnreadCount(ctx, recipientID)
}

// MarkRead marks one notification read, scoped to the recipient.
func (s *NotificationService) MarkRead(ctx context.Context, recipientID, id uint) error {
	return s.notificationRepo.MarkRead(ctx, id, recipientID)
}

// MarkReadBatch marks the given ids read. Ids owned by other recipients are
// skipped, never an error.
func (s *NotificationService) MarkReadBatch(ctx context.Context, recipientID uint, ids []uint) (int64, error) {
	return s.notificationRepo.MarkReadBatch(ctx, recipientID, ids)
}

// MarkAllRead marks every unread notification of the recipient read.
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID uint) (int64, error) {
	return s.notificationRepo.MarkAllRead(ctx, recipientID)
}

// Delete removes one notification, scoped to the recipient.
func (s *NotificationService) Delete(ctx context.Context, recipientID, id uint) error {
	return s.notificationRepo.Delete(ctx, id, recipientID)
}

// DeleteAll removes every notification of the recipient.
func (s *NotificationService) DeleteAll(ctx context.Context, recipientID uint) (int64, error) {
	return s.notificationRepo.DeleteAll(ctx, recipientID)
}

// StartRetentionSweeper purges notifications older than the retention window
// on an hourly tick until ctx is cancelled.
func (s *NotificationService) StartRetentionSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-models.NotificationRetention)
				purged, err := s.notificationRepo.DeleteOlderThan(ctx, cutoff)
				if err != nil {
					observability.Logger.Error("notification retention sweep failed",
						slog.String("error", err.Error()))
					continue
				}
				if purged > 0 {
					observability.Logger.Info("notification retention sweep",
						slog.Int64("purged", purged))
				}
			}
		}
	}()
}
