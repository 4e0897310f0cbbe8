package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix        = "user:%d"
	PostKeyPrefix        = "post:%d"
	ThreadKeyPrefix      = "post:%d:thread:p%d"
	UnreadCountPrefix    = "user:%d:unread"
	ReportedQueuePrefix  = "moderation:reported"
)

const (
	UserTTL        = 5 * time.Minute
	PostTTL        = 30 * time.Minute
	ThreadTTL      = 2 * time.Minute
	UnreadCountTTL = 1 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

// ThreadKey caches one page of a post's comment thread.
func ThreadKey(postID uint, page int) string {
	return fmt.Sprintf(ThreadKeyPrefix, postID, page)
}

func UnreadCountKey(userID uint) string {
	return fmt.Sprintf(UnreadCountPrefix, userID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
}

// InvalidateThread drops all cached pages of a post's thread. Pages are
// deleted by scanning the small keyspace prefix rather than tracking pages.
func InvalidateThread(ctx context.Context, postID uint) {
	if client == nil {
		return
	}
	pattern := fmt.Sprintf("post:%d:thread:*", postID)
	iter := client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		client.Del(ctx, iter.Val())
	}
}

func InvalidateUnreadCount(ctx context.Context, userID uint) {
	Invalidate(ctx, UnreadCountKey(userID))
}
