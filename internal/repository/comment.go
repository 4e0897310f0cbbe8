// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"

	"inkwell/internal/cache"
	"inkwell/internal/models"

	"gorm.io/gorm"
)

// descendantsCTE selects the ids of every comment in the subtree rooted at
// the anchor. Both PostgreSQL and sqlite evaluate it, which keeps the test
// harness on the same query path as production.
const descendantsCTE = `
WITH RECURSIVE thread AS (
	SELECT id FROM comments WHERE id = ?
	UNION ALL
	SELECT c.id FROM comments c JOIN thread t ON c.parent_comment_id = t.id
)
SELECT id FROM thread`

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Comment, error)
	ListRoots(ctx context.Context, postID uint, limit, offset int, currentUserID uint) ([]*models.Comment, error)
	CountRoots(ctx context.Context, postID uint) (int64, error)
	ListRepliesForRoots(ctx context.Context, rootIDs []uint, currentUserID uint) ([]*models.Comment, error)
	ReplyCounts(ctx context.Context, rootIDs []uint) (map[uint]int64, error)
	ListReplies(ctx context.Context, parentID uint, limit, offset int, currentUserID uint) ([]*models.Comment, error)
	ReplyCount(ctx context.Context, parentID uint) (int64, error)
	Update(ctx context.Context, comment *models.Comment) error
	CascadeSoftDelete(ctx context.Context, id uint) ([]uint, error)
	Like(ctx context.Context, userID, commentID uint) (bool, error)
	Unlike(ctx context.Context, userID, commentID uint) error
	IsLiked(ctx context.Context, userID, commentID uint) (bool, error)
	LikesCount(ctx context.Context, commentID uint) (int64, error)
	Report(ctx context.Context, id uint, reason string) error
	ResolveReport(ctx context.Context, id uint) error
	ListReported(ctx context.Context, limit, offset int) ([]*models.Comment, error)
}

// commentRepository implements CommentRepository
type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateThread(ctx, comment.PostID)
	// Reload with the author so callers can project the comment immediately
	if err := r.db.WithContext(ctx).Preload("Author").First(comment, comment.ID).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.applyCommentDetails(r.db.WithContext(ctx), currentUserID).
		Preload("Author").
		First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &comment, nil
}

// ListRoots returns one page of root comments for the post, newest first.
// Soft-deleted roots are included; their subtrees would be unreachable
// otherwise.
func (r *commentRepository) ListRoots(ctx context.Context, postID uint, limit, offset int, currentUserID uint) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.applyCommentDetails(r.db.WithContext(ctx), currentUserID).
		Preload("Author").
		Where("post_id = ? AND parent_comment_id IS NULL", postID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (r *commentRepository) CountRoots(ctx context.Context, postID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("post_id = ? AND parent_comment_id IS NULL", postID).
		Count(&count).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

// ListRepliesForRoots returns the direct replies of every root in one query,
// newest first, so the caller can trim each root's preview slice.
func (r *commentRepository) ListRepliesForRoots(ctx context.Context, rootIDs []uint, currentUserID uint) ([]*models.Comment, error) {
	if len(rootIDs) == 0 {
		return nil, nil
	}
	var comments []*models.Comment
	err := r.applyCommentDetails(r.db.WithContext(ctx), currentUserID).
		Preload("Author").
		Where("parent_comment_id IN ?", rootIDs).
		Order("created_at DESC").
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

// ReplyCounts returns the direct reply count per root id. Roots without
// replies are absent from the map.
func (r *commentRepository) ReplyCounts(ctx context.Context, rootIDs []uint) (map[uint]int64, error) {
	if len(rootIDs) == 0 {
		return map[uint]int64{}, nil
	}
	var rows []struct {
		ParentCommentID uint
		Count           int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Select("parent_comment_id, COUNT(*) as count").
		Where("parent_comment_id IN ?", rootIDs).
		Group("parent_comment_id").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.ParentCommentID] = row.Count
	}
	return counts, nil
}

// ListReplies returns one page of direct replies to a comment, oldest first.
func (r *commentRepository) ListReplies(ctx context.Context, parentID uint, limit, offset int, currentUserID uint) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.applyCommentDetails(r.db.WithContext(ctx), currentUserID).
		Preload("Author").
		Where("parent_comment_id = ?", parentID).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (r *commentRepository) ReplyCount(ctx context.Context, parentID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("parent_comment_id = ?", parentID).
		Count(&count).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *commentRepository) Update(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Save(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateThread(ctx, comment.PostID)
	return nil
}

// CascadeSoftDelete marks the comment and every transitive descendant as
// deleted in one transaction and returns the affected ids. Content stays in
// place; projections mask it.
func (r *commentRepository) CascadeSoftDelete(ctx context.Context, id uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Raw(descendantsCTE, id).Scan(&ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&models.Comment{}).
			Where("id IN ?", ids).
			Update("is_deleted", true).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

// Like inserts the like atomically. Returns true when newly recorded.
func (r *commentRepository) Like(ctx context.Context, userID, commentID uint) (bool, error) {
	result := r.db.WithContext(ctx).Exec(
		`INSERT INTO comment_likes (user_id, comment_id, created_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (user_id, comment_id) DO NOTHING`,
		userID, commentID,
	)
	if result.Error != nil {
		return false, models.NewInternalError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *commentRepository) Unlike(ctx context.Context, userID, commentID uint) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND comment_id = ?", userID, commentID).
		Delete(&models.CommentLike{}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) IsLiked(ctx context.Context, userID, commentID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.CommentLike{}).
		Where("user_id = ? AND comment_id = ?", userID, commentID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *commentRepository) LikesCount(ctx context.Context, commentID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.CommentLike{}).
		Where("comment_id = ?", commentID).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *commentRepository) Report(ctx context.Context, id uint, reason string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_reported": true, "report_reason": reason})
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", id)
	}
	return nil
}

func (r *commentRepository) ResolveReport(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_reported": false, "report_reason": ""})
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", id)
	}
	return nil
}

// ListReported returns the moderation queue, newest reports first.
func (r *commentRepository) ListReported(ctx context.Context, limit, offset int) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.applyCommentDetails(r.db.WithContext(ctx), 0).
		Preload("Author").
		Where("is_reported = ?", true).
		Order("updated_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

// applyCommentDetails adds subqueries to fetch like counts and liked status
// in a single query.
func (r *commentRepository) applyCommentDetails(db *gorm.DB, currentUserID uint) *gorm.DB {
	selectQuery := "comments.*, " +
		"(SELECT COUNT(*) FROM comment_likes WHERE comment_likes.comment_id = comments.id) as likes_count"

	if currentUserID != 0 {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM comment_likes WHERE comment_likes.comment_id = comments.id AND comment_likes.user_id = ?) as liked", currentUserID)
	}

	return db.Select(selectQuery + ", false as liked")
}
