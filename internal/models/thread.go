package models

import "time"

// CommentView is the outward projection of a comment: what handlers return
// and what realtime events carry. Soft-deleted content is already masked.
type CommentView struct {
	ID              uint      `json:"id"`
	Content         string    `json:"content"`
	AuthorID        uint      `json:"author_id"`
	Author          User      `json:"author"`
	PostID          uint      `json:"post_id"`
	ParentCommentID *uint     `json:"parent_comment_id"`
	IsDeleted       bool      `json:"is_deleted"`
	LikesCount      int       `json:"likes_count"`
	Liked           bool      `json:"liked"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// View projects the comment for API and realtime consumers.
func (c *Comment) View() CommentView {
	return CommentView{
		ID:              c.ID,
		Content:         c.DisplayContent(),
		AuthorID:        c.AuthorID,
		Author:          c.Author,
		PostID:          c.PostID,
		ParentCommentID: c.ParentCommentID,
		IsDeleted:       c.IsDeleted,
		LikesCount:      c.LikesCount,
		Liked:           c.Liked,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

// ReportedCommentView is the moderation-queue projection. It exposes the
// original content and the report reason, which the public view never does.
type ReportedCommentView struct {
	CommentView
	OriginalContent string `json:"original_content"`
	ReportReason    string `json:"report_reason"`
}

// ReportView projects the comment for moderators.
func (c *Comment) ReportView() ReportedCommentView {
	return ReportedCommentView{
		CommentView:     c.View(),
		OriginalContent: c.Content,
		ReportReason:    c.ReportReason,
	}
}

// ThreadNode is one comment in a reconstructed reply tree.
type ThreadNode struct {
	CommentView
	Replies        []*ThreadNode `json:"replies"`
	TotalReplies   int64         `json:"total_replies"`
	HasMoreReplies bool          `json:"has_more_replies"`
}

// BuildThread reconstructs the reply tree from a flat comment slice using a
// two-pass arena: first an id->node table, then a linking pass attaching each
// node to its parent's reply list. Nodes whose parent is not in the input
// (orphans, which the same-post invariant should prevent) are promoted to
// roots rather than dropped. Runs in O(n) over the comment count; input order
// is preserved within each reply list.
func BuildThread(comments []*Comment) []*ThreadNode {
	arena := make(map[uint]*ThreadNode, len(comments))
	for _, c := range comments {
		arena[c.ID] = &ThreadNode{CommentView: c.View(), Replies: []*ThreadNode{}}
	}

	roots := make([]*ThreadNode, 0)
	for _, c := range comments {
		node := arena[c.ID]
		if c.ParentCommentID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := arena[*c.ParentCommentID]
		if !ok {
			roots = append(roots, node)
			continue
		}
		parent.Replies = append(parent.Replies, node)
	}

	for _, node := range arena {
		node.TotalReplies = int64(len(node.Replies))
	}
	return roots
}
