package seed

import (
	"testing"

	"inkwell/internal/database"
	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSeedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

func TestSeed_PopulatesAllTables(t *testing.T) {
	db := newSeedDB(t)

	// ShouldClean uses TRUNCATE ... CASCADE, which sqlite does not support.
	err := Seed(db, Options{NumUsers: 10, NumPosts: 20, ShouldClean: false})
	require.NoError(t, err)

	var userCount, postCount, commentCount int64
	require.NoError(t, db.Model(&models.User{}).Count(&userCount).Error)
	require.NoError(t, db.Model(&models.Post{}).Count(&postCount).Error)
	require.NoError(t, db.Model(&models.Comment{}).Count(&commentCount).Error)

	assert.Equal(t, int64(10), userCount)
	assert.Equal(t, int64(20), postCount)
	assert.Positive(t, commentCount)
}

func TestSeed_FixedAccounts(t *testing.T) {
	db := newSeedDB(t)
	require.NoError(t, Seed(db, Options{NumUsers: 5, NumPosts: 1}))

	var admin models.User
	require.NoError(t, db.Where("username = ?", "admin").First(&admin).Error)
	assert.True(t, admin.IsAdmin)
	assert.True(t, admin.IsModerator)

	var moderator models.User
	require.NoError(t, db.Where("username = ?", "moderator").First(&moderator).Error)
	assert.True(t, moderator.IsModerator)
	assert.False(t, moderator.IsAdmin)
}

func TestSeed_RepliesStayOnParentPost(t *testing.T) {
	db := newSeedDB(t)
	require.NoError(t, Seed(db, Options{NumUsers: 8, NumPosts: 30}))

	var replies []models.Comment
	require.NoError(t, db.Where("parent_comment_id IS NOT NULL").Find(&replies).Error)

	for _, reply := range replies {
		var parent models.Comment
		require.NoError(t, db.First(&parent, *reply.ParentCommentID).Error)
		assert.Equal(t, parent.PostID, reply.PostID)
	}
}

func TestFactory_RejectsCrossPostReply(t *testing.T) {
	db := newSeedDB(t)
	f := NewFactory(db)

	author, err := f.CreateUser()
	require.NoError(t, err)
	postA, err := f.CreatePost(author)
	require.NoError(t, err)
	postB, err := f.CreatePost(author)
	require.NoError(t, err)

	parent, err := f.CreateComment(postA, author, nil)
	require.NoError(t, err)

	_, err = f.CreateComment(postB, author, parent)
	assert.Error(t, err)
}
