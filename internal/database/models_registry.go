package database

import "inkwell/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Follow{},
		&models.Post{},
		&models.PostLike{},
		&models.Bookmark{},
		&models.Comment{},
		&models.CommentLike{},
		&models.Notification{},
	}
}
