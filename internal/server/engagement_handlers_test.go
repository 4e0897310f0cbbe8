package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikePostHandler(t *testing.T) {
	s := newTestServer(t)
	author := seedUser(t, s, "author")
	liker := seedUser(t, s, "liker")
	seedPost(t, s, author.ID, "First Post")

	app := newTestApp(s, liker.ID)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/posts/1/like", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		PostID     uint  `json:"post_id"`
		LikesCount int64 `json:"likes_count"`
		Liked      bool  `json:"liked"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, uint(1), body.PostID)
	assert.Equal(t, int64(1), body.LikesCount)
	assert.True(t, body.Liked)

	t.Run("missing post is 404", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/posts/999/like", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestBookmarkPostHandler(t *testing.T) {
	s := newTestServer(t)
	author := seedUser(t, s, "author")
	saver := seedUser(t, s, "saver")
	seedPost(t, s, author.ID, "First Post")

	app := newTestApp(s, saver.ID)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/posts/1/bookmark", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Bookmarked bool `json:"bookmarked"`
	}
	decodeBody(t, resp, &body)
	assert.True(t, body.Bookmarked)

	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/api/posts/1/bookmark", nil))
	require.NoError(t, err)
	decodeBody(t, resp, &body)
	assert.False(t, body.Bookmarked)
}

func TestFollowHandlers(t *testing.T) {
	s := newTestServer(t)
	follower := seedUser(t, s, "follower")
	seedUser(t, s, "followee")

	app := newTestApp(s, follower.ID)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/users/2/follow", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	t.Run("self follow rejected", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/users/1/follow", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unfollow", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, http.MethodDelete, "/api/users/2/follow", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestAdminNoticeHandler(t *testing.T) {
	s := newTestServer(t)
	admin := seedAdmin(t, s, "admin")
	seedUser(t, s, "alice")
	seedUser(t, s, "bob")

	t.Run("admin broadcasts", func(t *testing.T) {
		app := newTestApp(s, admin.ID)
		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/admin/notices",
			map[string]string{"title": "Maintenance", "message": "Down at noon"}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var body struct {
			Sent int `json:"sent"`
		}
		decodeBody(t, resp, &body)
		assert.Equal(t, 2, body.Sent)
	})

	t.Run("non-admin forbidden", func(t *testing.T) {
		app := newTestApp(s, 2)
		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/admin/notices",
			map[string]string{"title": "Nope", "message": "Nope"}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}
