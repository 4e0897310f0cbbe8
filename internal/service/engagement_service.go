package service

import (
	"context"
	"log/slog"

	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/realtime"
	"inkwell/internal/repository"
)

// EngagementService covers the post-level reactions (likes, bookmarks),
// follow relationships, and admin notices.
type EngagementService struct {
	postRepo        repository.PostRepository
	followRepo      repository.FollowRepository
	userRepo        repository.UserRepository
	notificationSvc *NotificationService
	broadcaster     realtime.Broadcaster
}

// NewEngagementService creates a new EngagementService.
func NewEngagementService(
	postRepo repository.PostRepository,
	followRepo repository.FollowRepository,
	userRepo repository.UserRepository,
	notificationSvc *NotificationService,
	broadcaster realtime.Broadcaster,
) *EngagementService {
	return &EngagementService{
		postRepo:        postRepo,
		followRepo:      followRepo,
		userRepo:        userRepo,
		notificationSvc: notificationSvc,
		broadcaster:     broadcaster,
	}
}

// PostLikeResult is the post like-toggle outcome for the acting user.
type PostLikeResult struct {
	PostID     uint  `json:"post_id"`
	LikesCount int64 `json:"likes_count"`
	Liked      bool  `json:"liked"`
}

// BookmarkResult is the bookmark-toggle outcome.
type BookmarkResult struct {
	PostID     uint `json:"post_id"`
	Bookmarked bool `json:"bookmarked"`
}

// TogglePostLike flips the requester's like on the post. First like notifies
// the post's author and every like change broadcasts the new count.
func (s *EngagementService) TogglePostLike(ctx context.Context, postID, userID uint) (*PostLikeResult, error) {
	post, err := s.postRepo.GetByID(ctx, postID, 0)
	if err != nil {
		return nil, err
	}

	inserted, err := s.postRepo.Like(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if !inserted {
		if err := s.postRepo.Unlike(ctx, userID, postID); err != nil {
			return nil, err
		}
	}

	count, err := s.postRepo.LikesCount(ctx, postID)
	if err != nil {
		return nil, err
	}

	if s.broadcaster != nil {
		s.broadcaster.Emit(ctx, realtime.PostTopic(postID), realtime.Event{
			Type: realtime.EventBlogLikeUpdate,
			Payload: map[string]interface{}{
				"post_id":     postID,
				"likes_count": count,
				"user_id":     userID,
				"liked":       inserted,
			},
		})
	}

	if inserted {
		s.notifyDropped(ctx, NotifyInput{
			RecipientID: post.AuthorID,
			SenderID:    userID,
			Type:        models.NotificationPostLike,
			PostID:      &postID,
			Extra:       models.PostExtra{PostTitle: post.Title},
		})
	}

	return &PostLikeResult{PostID: postID, LikesCount: count, Liked: inserted}, nil
}

// ToggleBookmark flips the requester's bookmark on the post. Saving notifies
// the author; unsaving stays silent.
func (s *EngagementService) ToggleBookmark(ctx context.Context, postID, userID uint) (*BookmarkResult, error) {
	post, err := s.postRepo.GetByID(ctx, postID, 0)
	if err != nil {
		return nil, err
	}

	inserted, err := s.postRepo.Bookmark(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if !inserted {
		if err := s.postRepo.Unbookmark(ctx, userID, postID); err != nil {
			return nil, err
		}
	}

	if inserted {
		s.notifyDropped(ctx, NotifyInput{
			RecipientID: post.AuthorID,
			SenderID:    userID,
			Type:        models.NotificationPostBookmark,
			PostID:      &postID,
			Extra:       models.PostExtra{PostTitle: post.Title},
		})
	}

	return &BookmarkResult{PostID: postID, Bookmarked: inserted}, nil
}

// Follow records the relationship and notifies the followee on a new follow.
// Re-follow requests are idempotent and silent.
func (s *EngagementService) Follow(ctx context.Context, followerID, followeeID uint) error {
	if followerID == followeeID {
		return models.NewValidationError("You cannot follow yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, followeeID); err != nil {
		return err
	}

	inserted, err := s.followRepo.Follow(ctx, followerID, followeeID)
	if err != nil {
		return err
	}
	if inserted {
		s.notifyDropped(ctx, NotifyInput{
			RecipientID: followeeID,
			SenderID:    followerID,
			Type:        models.NotificationFollow,
		})
	}
	return nil
}

// Unfollow removes the relationship. Idempotent.
func (s *EngagementService) Unfollow(ctx context.Context, followerID, followeeID uint) error {
	return s.followRepo.Unfollow(ctx, followerID, followeeID)
}

// AdminNotice persists an admin_notice notification for every user except
// the sender. Admins only.
func (s *EngagementService) AdminNotice(ctx context.Context, adminID uint, title, message string) (int, error) {
	admin, err := s.userRepo.GetByID(ctx, adminID)
	if err != nil {
		return 0, err
	}
	if !admin.IsAdmin {
		return 0, models.NewUnauthorizedError("Admin access required")
	}
	if title == "" || message == "" {
		return 0, models.NewValidationError("Title and message are required")
	}

	ids, err := s.userRepo.AllIDs(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, id := range ids {
		if id == adminID {
			continue
		}
		if _, err := s.notificationSvc.Notify(ctx, NotifyInput{
			RecipientID: id,
			SenderID:    adminID,
			Type:        models.NotificationAdminNotice,
			Extra:       models.AdminNoticeExtra{Title: title, Message: message},
		}); err != nil {
			continue
		}
		sent++
	}
	return sent, nil
}

// notifyDropped creates a notification, logging and dropping any failure so
// the triggering action still succeeds.
func (s *EngagementService) notifyDropped(ctx context.Context, in NotifyInput) {
	if s.notificationSvc == nil {
		return
	}
	if _, err := s.notificationSvc.Notify(ctx, in); err != nil {
		observability.SecondaryEffectFailures.WithLabelValues("notification_create").Inc()
		observability.Logger.WarnContext(ctx, "notification creation failed",
			slog.String("type", string(in.Type)), slog.String("error", err.Error()))
	}
}
