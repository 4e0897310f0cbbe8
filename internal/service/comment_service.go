package service

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/realtime"
	"inkwell/internal/repository"
)

// repliesPreviewLimit is how many of a root's most recent replies ride along
// in the thread listing; the rest are fetched through ListReplies.
const repliesPreviewLimit = 5

// CommentService implements threaded comment storage, tree reconstruction,
// and the engagement side effects (notifications, realtime events) that
// comment mutations trigger.
type CommentService struct {
	commentRepo     repository.CommentRepository
	postRepo        repository.PostRepository
	userRepo        repository.UserRepository
	notificationSvc *NotificationService
	broadcaster     realtime.Broadcaster
}

// NewCommentService creates a new CommentService.
func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	notificationSvc *NotificationService,
	broadcaster realtime.Broadcaster,
) *CommentService {
	return &CommentService{
		commentRepo:     commentRepo,
		postRepo:        postRepo,
		userRepo:        userRepo,
		notificationSvc: notificationSvc,
		broadcaster:     broadcaster,
	}
}

// CreateCommentInput describes a new root comment or reply.
type CreateCommentInput struct {
	AuthorID        uint
	PostID          uint
	Content         string
	ParentCommentID *uint
}

// UpdateCommentInput describes a content edit.
type UpdateCommentInput struct {
	AuthorID  uint
	CommentID uint
	Content   string
}

// ThreadPage is the root-comment listing envelope.
type ThreadPage struct {
	Comments   []*models.ThreadNode `json:"comments"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	TotalRoots int64                `json:"total_roots"`
}

// RepliesPage is the direct-replies listing envelope.
type RepliesPage struct {
	Replies      []models.CommentView `json:"replies"`
	Page         int                  `json:"page"`
	PageSize     int                  `json:"page_size"`
	TotalReplies int64                `json:"total_replies"`
}

// DeleteResult reports a cascade soft-delete: the target and every
// transitively deleted descendant.
type DeleteResult struct {
	CommentID   uint   `json:"comment_id"`
	PostID      uint   `json:"post_id"`
	CascadedIDs []uint `json:"cascaded_ids"`
}

// LikeResult is the like-toggle outcome for the acting user.
type LikeResult struct {
	CommentID  uint  `json:"comment_id"`
	LikesCount int64 `json:"likes_count"`
	Liked      bool  `json:"liked"`
}

func validateContent(content string) error {
	n := utf8.RuneCountInString(content)
	if n < models.MinCommentLength {
		return models.NewValidationError("Content is required")
	}
	if n > models.MaxCommentLength {
		return models.NewValidationError("Comment too long (max 1000 characters)")
	}
	return nil
}

// ListRootComments returns one page of root comments, newest first, each
// carrying up to five most-recent direct replies plus total counts.
func (s *CommentService) ListRootComments(ctx context.Context, postID uint, page, pageSize int, currentUserID uint) (*ThreadPage, error) {
	if _, err := s.postRepo.GetByID(ctx, postID, 0); err != nil {
		return nil, err
	}

	offset := (page - 1) * pageSize
	roots, err := s.commentRepo.ListRoots(ctx, postID, pageSize, offset, currentUserID)
	if err != nil {
		return nil, err
	}
	total, err := s.commentRepo.CountRoots(ctx, postID)
	if err != nil {
		return nil, err
	}

	rootIDs := make([]uint, 0, len(roots))
	for _, r := range roots {
		rootIDs = append(rootIDs, r.ID)
	}

	replies, err := s.commentRepo.ListRepliesForRoots(ctx, rootIDs, currentUserID)
	if err != nil {
		return nil, err
	}
	counts, err := s.commentRepo.ReplyCounts(ctx, rootIDs)
	if err != nil {
		return nil, err
	}

	// Roots first so BuildThread keeps their newest-first order; replies
	// arrive newest-first and are trimmed to the preview window below.
	flat := make([]*models.Comment, 0, len(roots)+len(replies))
	flat = append(flat, roots...)
	flat = append(flat, replies...)
	nodes := models.BuildThread(flat)

	for _, node := range nodes {
		node.TotalReplies = counts[node.ID]
		if len(node.Replies) > repliesPreviewLimit {
			node.Replies = node.Replies[:repliesPreviewLimit]
		}
		// Preview reads oldest-to-newest like the full reply listing
		reverseNodes(node.Replies)
		node.HasMoreReplies = node.TotalReplies > int64(len(node.Replies))
	}

	return &ThreadPage{
		Comments:   nodes,
		Page:       page,
		PageSize:   pageSize,
		TotalRoots: total,
	}, nil
}

func reverseNodes(nodes []*models.ThreadNode) {
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
}

// ListReplies returns one page of a comment's direct replies, oldest first.
// Deeper levels are fetched by calling this operation on a reply's id.
func (s *CommentService) ListReplies(ctx context.Context, commentID uint, page, pageSize int, currentUserID uint) (*RepliesPage, error) {
	if _, err := s.commentRepo.GetByID(ctx, commentID, 0); err != nil {
		return nil, err
	}

	offset := (page - 1) * pageSize
	replies, err := s.commentRepo.ListReplies(ctx, commentID, pageSize, offset, currentUserID)
	if err != nil {
		return nil, err
	}
	total, err := s.commentRepo.ReplyCount(ctx, commentID)
	if err != nil {
		return nil, err
	}

	views := make([]models.CommentView, 0, len(replies))
	for _, r := range replies {
		views = append(views, r.View())
	}
	return &RepliesPage{
		Replies:      views,
		Page:         page,
		PageSize:     pageSize,
		TotalReplies: total,
	}, nil
}

// CreateComment validates and persists a comment, then fires the notification
// and realtime side effects. Side-effect failures never fail the creation.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	if err := validateContent(in.Content); err != nil {
		return nil, err
	}

	post, err := s.postRepo.GetByID(ctx, in.PostID, 0)
	if err != nil {
		return nil, err
	}

	var parent *models.Comment
	if in.ParentCommentID != nil {
		parent, err = s.commentRepo.GetByID(ctx, *in.ParentCommentID, 0)
		if err != nil {
			return nil, err
		}
		if parent.PostID != in.PostID {
			return nil, models.NewValidationError("Parent comment belongs to a different post")
		}
	}

	comment := &models.Comment{
		Content:         in.Content,
		AuthorID:        in.AuthorID,
		PostID:          in.PostID,
		ParentCommentID: in.ParentCommentID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	s.emit(ctx, realtime.PostTopic(in.PostID), realtime.Event{
		Type:    realtime.EventNewComment,
		Payload: comment.View(),
	})

	excerpt := commentPreview(in.Content)
	if parent != nil {
		// A reply notifies the parent's author, never the post author
		s.notify(ctx, NotifyInput{
			RecipientID: parent.AuthorID,
			SenderID:    in.AuthorID,
			Type:        models.NotificationCommentReply,
			PostID:      &in.PostID,
			CommentID:   &comment.ID,
			Extra:       models.CommentExtra{Excerpt: excerpt},
		})
	} else {
		s.notify(ctx, NotifyInput{
			RecipientID: post.AuthorID,
			SenderID:    in.AuthorID,
			Type:        models.NotificationPostComment,
			PostID:      &in.PostID,
			CommentID:   &comment.ID,
			Extra:       models.PostExtra{PostTitle: post.Title},
		})
	}

	s.notifyMentions(ctx, comment, parent, post, excerpt)

	return comment, nil
}

// notifyMentions resolves @username tokens and notifies each mentioned user,
// skipping anyone already notified by the comment itself.
func (s *CommentService) notifyMentions(ctx context.Context, comment *models.Comment, parent *models.Comment, post *models.Post, excerpt string) {
	names := scanMentions(comment.Content)
	if len(names) == 0 {
		return
	}
	users, err := s.userRepo.GetByUsernames(ctx, names)
	if err != nil {
		observability.SecondaryEffectFailures.WithLabelValues("mention_lookup").Inc()
		observability.Logger.WarnContext(ctx, "mention lookup failed", slog.String("error", err.Error()))
		return
	}

	alreadyNotified := post.AuthorID
	if parent != nil {
		alreadyNotified = parent.AuthorID
	}
	for i := range users {
		if users[i].ID == alreadyNotified {
			continue
		}
		s.notify(ctx, NotifyInput{
			RecipientID: users[i].ID,
			SenderID:    comment.AuthorID,
			Type:        models.NotificationMention,
			PostID:      &comment.PostID,
			CommentID:   &comment.ID,
			Extra:       models.CommentExtra{Excerpt: excerpt},
		})
	}
}

// UpdateComment applies a content edit, author only.
func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID, 0)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != in.AuthorID {
		return nil, models.NewUnauthorizedError("You can only edit your own comments")
	}
	if comment.IsDeleted {
		return nil, models.NewValidationError("Cannot edit a deleted comment")
	}
	if err := validateContent(in.Content); err != nil {
		return nil, err
	}

	comment.Content = in.Content
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, err
	}

	s.emit(ctx, realtime.PostTopic(comment.PostID), realtime.Event{
		Type:    realtime.EventCommentUpdated,
		Payload: comment.View(),
	})

	return comment, nil
}

// DeleteComment soft-deletes the comment and its whole subtree. Allowed for
// the author or a moderator.
func (s *CommentService) DeleteComment(ctx context.Context, commentID, requesterID uint) (*DeleteResult, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID, 0)
	if err != nil {
		return nil, err
	}

	if comment.AuthorID != requesterID {
		moderator, err := s.userRepo.IsModerator(ctx, requesterID)
		if err != nil {
			return nil, err
		}
		if !moderator {
			return nil, models.NewUnauthorizedError("You can only delete your own comments")
		}
	}

	ids, err := s.commentRepo.CascadeSoftDelete(ctx, commentID)
	if err != nil {
		return nil, err
	}

	result := &DeleteResult{
		CommentID:   commentID,
		PostID:      comment.PostID,
		CascadedIDs: ids,
	}
	s.emit(ctx, realtime.PostTopic(comment.PostID), realtime.Event{
		Type:    realtime.EventCommentDeleted,
		Payload: result,
	})

	return result, nil
}

// ToggleLike flips the requester's like on the comment. The first like (the
// insert) notifies the comment's author; unliking stays silent.
func (s *CommentService) ToggleLike(ctx context.Context, commentID, userID uint) (*LikeResult, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID, 0)
	if err != nil {
		return nil, err
	}

	// Atomic toggle: try the conditional insert first; if the row already
	// existed the toggle means unlike.
	inserted, err := s.commentRepo.Like(ctx, userID, commentID)
	if err != nil {
		return nil, err
	}
	if !inserted {
		if err := s.commentRepo.Unlike(ctx, userID, commentID); err != nil {
			return nil, err
		}
	}

	count, err := s.commentRepo.LikesCount(ctx, commentID)
	if err != nil {
		return nil, err
	}

	result := &LikeResult{CommentID: commentID, LikesCount: count, Liked: inserted}

	s.emit(ctx, realtime.PostTopic(comment.PostID), realtime.Event{
		Type: realtime.EventCommentLikeUpdate,
		Payload: map[string]interface{}{
			"comment_id":  commentID,
			"post_id":     comment.PostID,
			"likes_count": count,
			"user_id":     userID,
			"liked":       inserted,
		},
	})

	if inserted {
		s.notify(ctx, NotifyInput{
			RecipientID: comment.AuthorID,
			SenderID:    userID,
			Type:        models.NotificationCommentLike,
			PostID:      &comment.PostID,
			CommentID:   &commentID,
			Extra:       models.CommentExtra{Excerpt: commentPreview(comment.Content)},
		})
	}

	return result, nil
}

// ReportComment flags the comment for moderation. The author is not
// notified; the report stays silent until a moderator acts.
func (s *CommentService) ReportComment(ctx context.Context, commentID uint, reason string) error {
	if reason == "" {
		return models.NewValidationError("Report reason is required")
	}
	return s.commentRepo.Report(ctx, commentID, reason)
}

// ReportedComments returns the moderation queue. Moderators only.
func (s *CommentService) ReportedComments(ctx context.Context, requesterID uint, page, pageSize int) ([]models.ReportedCommentView, error) {
	moderator, err := s.userRepo.IsModerator(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if !moderator {
		return nil, models.NewUnauthorizedError("Moderator access required")
	}

	offset := (page - 1) * pageSize
	comments, err := s.commentRepo.ListReported(ctx, pageSize, offset)
	if err != nil {
		return nil, err
	}
	views := make([]models.ReportedCommentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, c.ReportView())
	}
	return views, nil
}

// ResolveReport clears the reported flag. Moderators only.
func (s *CommentService) ResolveReport(ctx context.Context, requesterID, commentID uint) error {
	moderator, err := s.userRepo.IsModerator(ctx, requesterID)
	if err != nil {
		return err
	}
	if !moderator {
		return models.NewUnauthorizedError("Moderator access required")
	}
	return s.commentRepo.ResolveReport(ctx, commentID)
}

// notify creates a notification, logging and dropping any failure.
func (s *CommentService) notify(ctx context.Context, in NotifyInput) {
	if s.notificationSvc == nil {
		return
	}
	if _, err := s.notificationSvc.Notify(ctx, in); err != nil {
		observability.SecondaryEffectFailures.WithLabelValues("notification_create").Inc()
		observability.Logger.WarnContext(ctx, "notification creation failed",
			slog.String("type", string(in.Type)), slog.String("error", err.Error()))
	}
}

// emit broadcasts a realtime event, best effort.
func (s *CommentService) emit(ctx context.Context, topic string, event realtime.Event) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.Emit(ctx, topic, event)
}

// commentPreview trims content to a short excerpt for notification text.
func commentPreview(content string) string {
	const max = 80
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max]) + "..."
}
