package realtime

// Event types carried over post and user topics.
const (
	EventNewComment        = "new_comment"
	EventCommentUpdated    = "comment_updated"
	EventCommentDeleted    = "comment_deleted"
	EventCommentLikeUpdate = "comment_like_updated"
	EventBlogLikeUpdate    = "blog_like_updated"
	EventNewNotification   = "new_notification"
)

// Event is the wire shape of every realtime message.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
