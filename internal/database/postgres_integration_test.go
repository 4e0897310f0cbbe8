//go:build integration

package database_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"inkwell/internal/database"
	"inkwell/internal/models"
	"inkwell/internal/seed"

	_ "github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type pgEnv struct {
	host string
	port string
	user string
	pass string
}

func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func readPGEnv() pgEnv {
	return pgEnv{
		host: getEnvOrDefault("DB_HOST", "localhost"),
		port: getEnvOrDefault("DB_PORT", "5432"),
		user: getEnvOrDefault("DB_USER", "user"),
		pass: getEnvOrDefault("DB_PASSWORD", "password"),
	}
}

func maintenanceDSN(cfg pgEnv, dbName string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.user, cfg.pass, cfg.host, cfg.port, dbName)
}

// createEphemeralDB creates a throwaway database for one test run and
// registers its teardown.
func createEphemeralDB(t *testing.T) (pgEnv, string) {
	t.Helper()
	cfg := readPGEnv()
	dbName := fmt.Sprintf("inkwell_it_%d", time.Now().UnixNano())

	sqlDB, err := sql.Open("pgx", maintenanceDSN(cfg, "postgres"))
	if err != nil {
		t.Fatalf("open maintenance db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	if _, err := sqlDB.ExecContext(context.Background(), `CREATE DATABASE `+dbName); err != nil {
		t.Skipf("postgres not reachable, skipping: %v", err)
	}
	t.Cleanup(func() {
		_, _ = sqlDB.ExecContext(context.Background(),
			`SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1`, dbName)
		_, _ = sqlDB.ExecContext(context.Background(), `DROP DATABASE IF EXISTS `+dbName)
	})

	return cfg, dbName
}

func openEphemeralGorm(t *testing.T, cfg pgEnv, dbName string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.Open(maintenanceDSN(cfg, dbName)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open ephemeral gorm db: %v", err)
	}
	return db
}

func TestIntegration_MigrateAndSeedPostgres(t *testing.T) {
	cfg, dbName := createEphemeralDB(t)
	db := openEphemeralGorm(t, cfg, dbName)

	if err := db.AutoMigrate(database.PersistentModels()...); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}

	if err := seed.Seed(db, seed.Options{NumUsers: 10, NumPosts: 20}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var commentCount int64
	if err := db.Model(&models.Comment{}).Count(&commentCount).Error; err != nil {
		t.Fatalf("count comments: %v", err)
	}
	if commentCount == 0 {
		t.Fatal("expected seeded comments, got 0")
	}

	// uniqueness contract the like toggle depends on
	user := models.User{Username: fmt.Sprintf("unique_%d", time.Now().UnixNano())}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	post := models.Post{Title: "t", Content: "c", AuthorID: user.ID}
	if err := db.Create(&post).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	like := models.PostLike{UserID: user.ID, PostID: post.ID}
	if err := db.Create(&like).Error; err != nil {
		t.Fatalf("create like: %v", err)
	}
	dup := models.PostLike{UserID: user.ID, PostID: post.ID}
	if err := db.Create(&dup).Error; err == nil {
		t.Fatal("expected unique violation on duplicate like, got nil")
	}
}
