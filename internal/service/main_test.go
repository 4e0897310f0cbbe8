package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"inkwell/internal/database"
	"inkwell/internal/models"
	"inkwell/internal/realtime"
	"inkwell/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// captureBroadcaster records every emitted event instead of fanning out.
type captureBroadcaster struct {
	mu     sync.Mutex
	events []capturedEvent
}

type capturedEvent struct {
	Topic string
	Event realtime.Event
}

func (b *captureBroadcaster) Emit(_ context.Context, topic string, event realtime.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, capturedEvent{Topic: topic, Event: event})
}

func (b *captureBroadcaster) all() []capturedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]capturedEvent, len(b.events))
	copy(out, b.events)
	return out
}

func (b *captureBroadcaster) ofType(eventType string) []capturedEvent {
	var out []capturedEvent
	for _, e := range b.all() {
		if e.Event.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// testEnv wires the services over an in-memory sqlite database and a
// capturing broadcaster.
type testEnv struct {
	db          *gorm.DB
	broadcaster *captureBroadcaster

	comments      *CommentService
	notifications *NotificationService
	engagement    *EngagementService

	notificationRepo repository.NotificationRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))

	broadcaster := &captureBroadcaster{}
	commentRepo := repository.NewCommentRepository(db)
	postRepo := repository.NewPostRepository(db)
	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	notifications := NewNotificationService(notificationRepo, userRepo, broadcaster)
	comments := NewCommentService(commentRepo, postRepo, userRepo, notifications, broadcaster)
	engagement := NewEngagementService(postRepo, followRepo, userRepo, notifications, broadcaster)

	return &testEnv{
		db:               db,
		broadcaster:      broadcaster,
		comments:         comments,
		notifications:    notifications,
		engagement:       engagement,
		notificationRepo: notificationRepo,
	}
}

func (e *testEnv) createUser(t *testing.T, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, DisplayName: username}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) createModerator(t *testing.T, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, DisplayName: username, IsModerator: true}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) createAdmin(t *testing.T, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, DisplayName: username, IsAdmin: true}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) createPost(t *testing.T, authorID uint, title string) *models.Post {
	t.Helper()
	post := &models.Post{Title: title, Content: "content of " + title, AuthorID: authorID}
	require.NoError(t, e.db.Create(post).Error)
	return post
}

// setCommentTime pins created_at so ordering assertions don't depend on
// insert-time clock resolution.
func (e *testEnv) setCommentTime(t *testing.T, commentID uint, at time.Time) {
	t.Helper()
	require.NoError(t, e.db.Model(&models.Comment{}).Where("id = ?", commentID).
		Update("created_at", at).Error)
}

func (e *testEnv) notificationsFor(t *testing.T, recipientID uint) []*models.Notification {
	t.Helper()
	list, err := e.notificationRepo.ListByRecipient(context.Background(), recipientID, 100, 0, false)
	require.NoError(t, err)
	return list
}
