package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(id uint) *uint { return &id }

func TestBuildThread_NestsRepliesUnderParents(t *testing.T) {
	comments := []*Comment{
		{ID: 1, Content: "root one", PostID: 1},
		{ID: 2, Content: "root two", PostID: 1},
		{ID: 3, Content: "reply to one", PostID: 1, ParentCommentID: ptr(1)},
		{ID: 4, Content: "reply to reply", PostID: 1, ParentCommentID: ptr(3)},
		{ID: 5, Content: "second reply to one", PostID: 1, ParentCommentID: ptr(1)},
	}

	roots := BuildThread(comments)
	require.Len(t, roots, 2)

	first := roots[0]
	assert.Equal(t, uint(1), first.ID)
	require.Len(t, first.Replies, 2)
	assert.Equal(t, uint(3), first.Replies[0].ID)
	assert.Equal(t, uint(5), first.Replies[1].ID)
	assert.Equal(t, int64(2), first.TotalReplies)

	require.Len(t, first.Replies[0].Replies, 1)
	assert.Equal(t, uint(4), first.Replies[0].Replies[0].ID)

	second := roots[1]
	assert.Equal(t, uint(2), second.ID)
	assert.Empty(t, second.Replies)
	assert.Equal(t, int64(0), second.TotalReplies)
}

func TestBuildThread_PreservesInputOrder(t *testing.T) {
	comments := []*Comment{
		{ID: 10, PostID: 1},
		{ID: 11, PostID: 1, ParentCommentID: ptr(10)},
		{ID: 12, PostID: 1, ParentCommentID: ptr(10)},
		{ID: 13, PostID: 1, ParentCommentID: ptr(10)},
	}

	roots := BuildThread(comments)
	require.Len(t, roots, 1)
	require.Len(t, roots[0].Replies, 3)
	for i, want := range []uint{11, 12, 13} {
		assert.Equal(t, want, roots[0].Replies[i].ID)
	}
}

func TestBuildThread_PromotesOrphans(t *testing.T) {
	// Parent 99 is absent from the input slice.
	comments := []*Comment{
		{ID: 1, PostID: 1},
		{ID: 2, PostID: 1, ParentCommentID: ptr(99)},
	}

	roots := BuildThread(comments)
	require.Len(t, roots, 2)
	assert.Equal(t, uint(1), roots[0].ID)
	assert.Equal(t, uint(2), roots[1].ID)
}

func TestBuildThread_Empty(t *testing.T) {
	assert.Empty(t, BuildThread(nil))
	assert.Empty(t, BuildThread([]*Comment{}))
}

func TestCommentView_MasksDeletedContent(t *testing.T) {
	c := &Comment{ID: 7, Content: "unkind words", IsDeleted: true}

	assert.Equal(t, CommentDeletedPlaceholder, c.DisplayContent())

	view := c.View()
	assert.Equal(t, CommentDeletedPlaceholder, view.Content)
	assert.True(t, view.IsDeleted)

	// Moderators still see what was written.
	report := c.ReportView()
	assert.Equal(t, CommentDeletedPlaceholder, report.Content)
	assert.Equal(t, "unkind words", report.OriginalContent)
}

func TestCommentView_PassesThroughLiveContent(t *testing.T) {
	c := &Comment{ID: 8, Content: "nice post", LikesCount: 3, Liked: true}

	view := c.View()
	assert.Equal(t, "nice post", view.Content)
	assert.Equal(t, 3, view.LikesCount)
	assert.True(t, view.Liked)
	assert.False(t, view.IsDeleted)
}
