package server

import (
	"context"
	"net/http"
	"testing"

	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCommentHandler(t *testing.T) {
	s := newTestServer(t)
	author := seedUser(t, s, "author")
	commenter := seedUser(t, s, "commenter")
	post := seedPost(t, s, author.ID, "First Post")

	app := newTestApp(s, commenter.ID)

	t.Run("creates root comment", func(t *testing.T) {
		req := jsonRequest(t, http.MethodPost, "/api/comments", map[string]interface{}{
			"post_id": post.ID,
			"content": "nice post",
		})
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var body models.CommentView
		decodeBody(t, resp, &body)
		assert.Equal(t, "nice post", body.Content)
		assert.Equal(t, commenter.ID, body.AuthorID)
		assert.Nil(t, body.ParentCommentID)
	})

	t.Run("rejects empty content", func(t *testing.T) {
		req := jsonRequest(t, http.MethodPost, "/api/comments", map[string]interface{}{
			"post_id": post.ID,
			"content": "",
		})
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("rejects missing post", func(t *testing.T) {
		req := jsonRequest(t, http.MethodPost, "/api/comments", map[string]interface{}{
			"post_id": 999,
			"content": "into the void",
		})
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		req := jsonRequest(t, http.MethodPost, "/api/comments", nil)
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetCommentsHandler(t *testing.T) {
	s := newTestServer(t)
	author := seedUser(t, s, "author")
	post := seedPost(t, s, author.ID, "First Post")
	app := newTestApp(s, author.ID)

	// One root with a reply, through the service so the tree is realistic
	root, err := s.commentService.CreateComment(context.Background(), service.CreateCommentInput{
		AuthorID: author.ID, PostID: post.ID, Content: "root",
	})
	require.NoError(t, err)
	_, err = s.commentService.CreateComment(context.Background(), service.CreateCommentInput{
		AuthorID: author.ID, PostID: post.ID, Content: "reply", ParentCommentID: &root.ID,
	})
	require.NoError(t, err)

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/posts/1/comments", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Comments []struct {
			Content      string `json:"content"`
			TotalReplies int64  `json:"total_replies"`
			Replies      []struct {
				Content string `json:"content"`
			} `json:"replies"`
		} `json:"comments"`
		TotalRoots int64 `json:"total_roots"`
		Page       int   `json:"page"`
	}
	decodeBody(t, resp, &body)
	require.Len(t, body.Comments, 1)
	assert.Equal(t, int64(1), body.TotalRoots)
	assert.Equal(t, "root", body.Comments[0].Content)
	require.Len(t, body.Comments[0].Replies, 1)
	assert.Equal(t, "reply", body.Comments[0].Replies[0].Content)

	t.Run("missing post is 404", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/posts/999/comments", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("invalid id is 400", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/posts/abc/comments", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestLikeCommentHandler(t *testing.T) {
	s := newTestServer(t)
	author := seedUser(t, s, "author")
	liker := seedUser(t, s, "liker")
	post := seedPost(t, s, author.ID, "First Post")

	comment, err := s.commentService.CreateComment(context.Background(), service.CreateCommentInput{
		AuthorID: author.ID, PostID: post.ID, Content: "likeable",
	})
	require.NoError(t, err)

	app := newTestApp(s, liker.ID)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/comments/1/like", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		CommentID  uint  `json:"comment_id"`
		LikesCount int64 `json:"likes_count"`
		Liked      bool  `json:"liked"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, comment.ID, body.CommentID)
	assert.Equal(t, int64(1), body.LikesCount)
	assert.True(t, body.Liked)

	// Second call toggles back off
	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/api/comments/1/like", nil))
	require.NoError(t, err)
	decodeBody(t, resp, &body)
	assert.Equal(t, int64(0), body.LikesCount)
	assert.False(t, body.Liked)
}

func TestDeleteCommentHandler_Forbidden(t *testing.T) {
	s := newTestServer(t)
	author := seedUser(t, s, "author")
	stranger := seedUser(t, s, "stranger")
	post := seedPost(t, s, author.ID, "First Post")

	_, err := s.commentService.CreateComment(context.Background(), service.CreateCommentInput{
		AuthorID: author.ID, PostID: post.ID, Content: "mine",
	})
	require.NoError(t, err)

	app := newTestApp(s, stranger.ID)
	resp, err := app.Test(jsonRequest(t, http.MethodDelete, "/api/comments/1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestModerationHandlers(t *testing.T) {
	s := newTestServer(t)
	author := seedUser(t, s, "author")
	moderator := seedModerator(t, s, "mod")
	post := seedPost(t, s, author.ID, "First Post")

	_, err := s.commentService.CreateComment(context.Background(), service.CreateCommentInput{
		AuthorID: author.ID, PostID: post.ID, Content: "rude remark",
	})
	require.NoError(t, err)

	authorApp := newTestApp(s, author.ID)
	modApp := newTestApp(s, moderator.ID)

	resp, err := authorApp.Test(jsonRequest(t, http.MethodPost, "/api/comments/1/report",
		map[string]string{"reason": "abusive"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	t.Run("queue requires moderator", func(t *testing.T) {
		resp, err := authorApp.Test(jsonRequest(t, http.MethodGet, "/api/comments/reported", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("moderator reads queue and resolves", func(t *testing.T) {
		resp, err := modApp.Test(jsonRequest(t, http.MethodGet, "/api/comments/reported", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Reported []struct {
				OriginalContent string `json:"original_content"`
				ReportReason    string `json:"report_reason"`
			} `json:"reported"`
		}
		decodeBody(t, resp, &body)
		require.Len(t, body.Reported, 1)
		assert.Equal(t, "rude remark", body.Reported[0].OriginalContent)
		assert.Equal(t, "abusive", body.Reported[0].ReportReason)

		resolve, err := modApp.Test(jsonRequest(t, http.MethodPost, "/api/comments/1/resolve-report", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resolve.StatusCode)

		again, err := modApp.Test(jsonRequest(t, http.MethodGet, "/api/comments/reported", nil))
		require.NoError(t, err)
		var after struct {
			Reported []interface{} `json:"reported"`
		}
		decodeBody(t, again, &after)
		assert.Empty(t, after.Reported)
	})
}
