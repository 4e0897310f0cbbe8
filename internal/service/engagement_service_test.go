package service

import (
	"context"
	"testing"

	"inkwell/internal/models"
	"inkwell/internal/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTogglePostLike(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	author := env.createUser(t, "author")
	liker := env.createUser(t, "liker")
	post := env.createPost(t, author.ID, "First Post")

	liked, err := env.engagement.TogglePostLike(ctx, post.ID, liker.ID)
	require.NoError(t, err)
	assert.True(t, liked.Liked)
	assert.Equal(t, int64(1), liked.LikesCount)

	unliked, err := env.engagement.TogglePostLike(ctx, post.ID, liker.ID)
	require.NoError(t, err)
	assert.False(t, unliked.Liked)
	assert.Equal(t, int64(0), unliked.LikesCount)

	// Only the initial like notified the author
	got := env.notificationsFor(t, author.ID)
	require.Len(t, got, 1)
	assert.Equal(t, models.NotificationPostLike, got[0].Type)
	assert.Contains(t, got[0].Message, "First Post")

	events := env.broadcaster.ofType(realtime.EventBlogLikeUpdate)
	require.Len(t, events, 2)
	assert.Equal(t, realtime.PostTopic(post.ID), events[0].Topic)
}

func TestTogglePostLike_PostNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	liker := env.createUser(t, "liker")
	_, err := env.engagement.TogglePostLike(ctx, 999, liker.ID)
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestToggleBookmark(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	author := env.createUser(t, "author")
	saver := env.createUser(t, "saver")
	post := env.createPost(t, author.ID, "First Post")

	saved, err := env.engagement.ToggleBookmark(ctx, post.ID, saver.ID)
	require.NoError(t, err)
	assert.True(t, saved.Bookmarked)

	unsaved, err := env.engagement.ToggleBookmark(ctx, post.ID, saver.ID)
	require.NoError(t, err)
	assert.False(t, unsaved.Bookmarked)

	got := env.notificationsFor(t, author.ID)
	require.Len(t, got, 1)
	assert.Equal(t, models.NotificationPostBookmark, got[0].Type)
}

func TestFollow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	follower := env.createUser(t, "follower")
	followee := env.createUser(t, "followee")

	require.NoError(t, env.engagement.Follow(ctx, follower.ID, followee.ID))
	// Idempotent refollow, no second notification
	require.NoError(t, env.engagement.Follow(ctx, follower.ID, followee.ID))

	got := env.notificationsFor(t, followee.ID)
	require.Len(t, got, 1)
	assert.Equal(t, models.NotificationFollow, got[0].Type)

	require.NoError(t, env.engagement.Unfollow(ctx, follower.ID, followee.ID))
	// Unfollowing twice is a no-op
	require.NoError(t, env.engagement.Unfollow(ctx, follower.ID, followee.ID))
}

func TestFollow_SelfRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "narcissus")
	err := env.engagement.Follow(ctx, user.ID, user.ID)
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestFollow_UnknownFollowee(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	follower := env.createUser(t, "follower")
	err := env.engagement.Follow(ctx, follower.ID, 999)
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestAdminNotice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := env.createAdmin(t, "admin")
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	sent, err := env.engagement.AdminNotice(ctx, admin.ID, "Maintenance", "Down at noon")
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	for _, u := range []*models.User{alice, bob} {
		got := env.notificationsFor(t, u.ID)
		require.Len(t, got, 1)
		assert.Equal(t, models.NotificationAdminNotice, got[0].Type)
		assert.Equal(t, "Maintenance", got[0].Title)
		assert.Equal(t, "Down at noon", got[0].Message)
	}
	// The sender does not notify themselves
	assert.Empty(t, env.notificationsFor(t, admin.ID))
}

func TestAdminNotice_Gates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := env.createAdmin(t, "admin")
	plain := env.createUser(t, "plain")

	_, err := env.engagement.AdminNotice(ctx, plain.ID, "Title", "Message")
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)

	_, err = env.engagement.AdminNotice(ctx, admin.ID, "", "Message")
	require.Error(t, err)
}
