// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"inkwell/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by the seeder and tests.
type Factory struct {
	db *gorm.DB
	r  *rand.Rand
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB) *Factory {
	// seed gofakeit for richer content
	gofakeit.Seed(time.Now().UnixNano())
	//nolint:gosec // Weak random number generator is fine for seeding
	return &Factory{db: db, r: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// pastTime returns a time up to maxDays in the past, for a realistic
// created_at spread.
func (f *Factory) pastTime(maxDays int) time.Time {
	if maxDays <= 0 {
		maxDays = 90
	}
	daysBack := f.r.Intn(maxDays)
	hoursBack := f.r.Intn(24)
	minsBack := f.r.Intn(60)
	return time.Now().Add(-time.Duration(daysBack)*24*time.Hour -
		time.Duration(hoursBack)*time.Hour - time.Duration(minsBack)*time.Minute)
}

// CreateUser constructs and persists a sample `models.User`.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Username:    fmt.Sprintf("%s%d", gofakeit.Username(), gofakeit.Number(100, 999)),
		DisplayName: gofakeit.Name(),
		Avatar:      fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
	}

	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreatePost constructs and persists a sample `models.Post` by the given author.
func (f *Factory) CreatePost(author *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := &models.Post{
		Title:     gofakeit.Sentence(5),
		Content:   gofakeit.Paragraph(2, 4, 8, "\n"),
		AuthorID:  author.ID,
		CreatedAt: f.pastTime(90),
	}

	for _, override := range overrides {
		override(post)
	}

	if err := f.db.Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreateComment persists a comment on the post. Pass a non-nil parent to
// create a reply; the parent must belong to the same post.
func (f *Factory) CreateComment(post *models.Post, author *models.User, parent *models.Comment) (*models.Comment, error) {
	comment := &models.Comment{
		Content:   gofakeit.Sentence(f.r.Intn(12) + 3),
		AuthorID:  author.ID,
		PostID:    post.ID,
		CreatedAt: f.pastTime(30),
	}
	if parent != nil {
		if parent.PostID != post.ID {
			return nil, fmt.Errorf("parent comment %d belongs to post %d, not %d",
				parent.ID, parent.PostID, post.ID)
		}
		comment.ParentCommentID = &parent.ID
		// replies come after their parent
		if comment.CreatedAt.Before(parent.CreatedAt) {
			comment.CreatedAt = parent.CreatedAt.Add(time.Duration(f.r.Intn(120)+1) * time.Minute)
		}
	}

	if err := f.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// LikePost records a like; duplicate pairs are silently skipped.
func (f *Factory) LikePost(user *models.User, post *models.Post) error {
	like := &models.PostLike{UserID: user.ID, PostID: post.ID}
	if err := f.db.Create(like).Error; err != nil {
		var count int64
		f.db.Model(&models.PostLike{}).
			Where("user_id = ? AND post_id = ?", user.ID, post.ID).Count(&count)
		if count > 0 {
			return nil
		}
		return err
	}
	return nil
}

// LikeComment records a comment like; duplicate pairs are silently skipped.
func (f *Factory) LikeComment(user *models.User, comment *models.Comment) error {
	like := &models.CommentLike{UserID: user.ID, CommentID: comment.ID}
	if err := f.db.Create(like).Error; err != nil {
		var count int64
		f.db.Model(&models.CommentLike{}).
			Where("user_id = ? AND comment_id = ?", user.ID, comment.ID).Count(&count)
		if count > 0 {
			return nil
		}
		return err
	}
	return nil
}

// Follow records a follow edge; self-follows and duplicates are skipped.
func (f *Factory) Follow(follower, followee *models.User) error {
	if follower.ID == followee.ID {
		return nil
	}
	follow := &models.Follow{FollowerID: follower.ID, FolloweeID: followee.ID}
	if err := f.db.Create(follow).Error; err != nil {
		var count int64
		f.db.Model(&models.Follow{}).
			Where("follower_id = ? AND followee_id = ?", follower.ID, followee.ID).Count(&count)
		if count > 0 {
			return nil
		}
		return err
	}
	return nil
}
