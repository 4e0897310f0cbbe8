package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret: "test-secret-key-for-handler-tests",
		Port:      "0",
		Env:       "test",
	}
}

// newTestServer builds a Server over in-memory sqlite without Redis.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))

	s, err := NewServerWithDeps(testConfig(), db, nil)
	require.NoError(t, err)
	return s
}

// newTestApp wires routes onto a bare fiber app with a stubbed auth layer
// that injects the given userID.
func newTestApp(s *Server, userID uint) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if userID != 0 {
			c.Locals("userID", userID)
		}
		return c.Next()
	})

	app.Get("/api/posts/:id/comments", s.GetComments)
	app.Get("/api/comments/:id/replies", s.GetReplies)
	app.Get("/api/comments/reported", s.GetReportedComments)
	app.Post("/api/comments", s.CreateComment)
	app.Post("/api/comments/:id/like", s.LikeComment)
	app.Post("/api/comments/:id/report", s.ReportComment)
	app.Post("/api/comments/:id/resolve-report", s.ResolveReport)
	app.Put("/api/comments/:id", s.UpdateComment)
	app.Delete("/api/comments/:id", s.DeleteComment)

	app.Get("/api/notifications", s.GetNotifications)
	app.Get("/api/notifications/unread-count", s.GetUnreadCount)
	app.Put("/api/notifications/mark-read", s.MarkNotificationsRead)
	app.Put("/api/notifications/mark-all-read", s.MarkAllNotificationsRead)
	app.Put("/api/notifications/:id/read", s.MarkNotificationRead)
	app.Delete("/api/notifications/:id", s.DeleteNotification)
	app.Delete("/api/notifications", s.DeleteAllNotifications)

	app.Post("/api/posts/:id/like", s.LikePost)
	app.Post("/api/posts/:id/bookmark", s.BookmarkPost)
	app.Post("/api/users/:id/follow", s.FollowUser)
	app.Delete("/api/users/:id/follow", s.UnfollowUser)
	app.Post("/api/admin/notices", s.CreateAdminNotice)

	return app
}

func seedUser(t *testing.T, s *Server, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, DisplayName: username}
	require.NoError(t, s.db.Create(user).Error)
	return user
}

func seedModerator(t *testing.T, s *Server, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, DisplayName: username, IsModerator: true}
	require.NoError(t, s.db.Create(user).Error)
	return user
}

func seedAdmin(t *testing.T, s *Server, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, DisplayName: username, IsAdmin: true}
	require.NoError(t, s.db.Create(user).Error)
	return user
}

func seedPost(t *testing.T, s *Server, authorID uint, title string) *models.Post {
	t.Helper()
	post := &models.Post{Title: title, Content: "content of " + title, AuthorID: authorID}
	require.NoError(t, s.db.Create(post).Error)
	return post
}

func jsonRequest(t *testing.T, method, target string, payload interface{}) *http.Request {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func decodeBody(t *testing.T, resp *http.Response, dest interface{}) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// signTestToken mints a valid HMAC JWT for the auth middleware tests.
func signTestToken(t *testing.T, secret string, userID string, issuer, audience string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": issuer,
		"aud": audience,
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}
