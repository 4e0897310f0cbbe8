package seed

import (
	"fmt"
	"log"

	"inkwell/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
}

// Seed populates the database with test data: a user base, posts, threaded
// comments, likes, bookmarks and a follow mesh. Notifications are not
// seeded; they are produced by the services at runtime.
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("🌱 Starting database seeding with %d users and %d posts...", opts.NumUsers, opts.NumPosts)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("⚠️  Warning: Could not clear all existing data, but continuing anyway...")
		}
	}

	f := NewFactory(db)

	users, err := createUsers(f, opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("✓ %d test users created", len(users))

	posts, err := createPosts(f, users, opts.NumPosts)
	if err != nil {
		return fmt.Errorf("failed to create posts: %w", err)
	}
	log.Printf("✓ %d posts created", len(posts))

	commentCount, err := createThreads(f, users, posts)
	if err != nil {
		return fmt.Errorf("failed to create comment threads: %w", err)
	}
	log.Printf("✓ %d comments created", commentCount)

	if err := createEngagement(f, users, posts); err != nil {
		return fmt.Errorf("failed to create engagement: %w", err)
	}
	log.Println("✓ likes, bookmarks and follows created")

	log.Println("🎉 Database seeding completed successfully!")
	return nil
}

func clearData(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	sql := `TRUNCATE TABLE notifications, comment_likes, comments, post_likes, bookmarks, follows, posts, users RESTART IDENTITY CASCADE;`
	return db.Exec(sql).Error
}

func createUsers(f *Factory, count int) ([]*models.User, error) {
	users := make([]*models.User, 0, count)

	// Always include fixed accounts for local development logins.
	fixed := []func(*models.User){
		func(u *models.User) { u.Username = "inkwell"; u.DisplayName = "Inkwell Demo" },
		func(u *models.User) {
			u.Username = "moderator"
			u.DisplayName = "The Moderator"
			u.IsModerator = true
		},
		func(u *models.User) {
			u.Username = "admin"
			u.DisplayName = "The Admin"
			u.IsAdmin = true
			u.IsModerator = true
		},
	}
	if count >= len(fixed) {
		for _, override := range fixed {
			user, err := f.CreateUser(override)
			if err != nil {
				// probably seeded before without cleaning
				continue
			}
			users = append(users, user)
		}
	}

	for i := len(users); i < count; i++ {
		user, err := f.CreateUser()
		if err != nil {
			log.Printf("Failed to create user: %v", err)
			continue
		}
		users = append(users, user)

		if i > 0 && i%100 == 0 {
			log.Printf("Created %d users...", i)
		}
	}

	return users, nil
}

func createPosts(f *Factory, users []*models.User, count int) ([]*models.Post, error) {
	posts := make([]*models.Post, 0, count)
	for i := 0; i < count; i++ {
		author := users[f.r.Intn(len(users))]
		post, err := f.CreatePost(author)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)

		if i > 0 && i%100 == 0 {
			log.Printf("Created %d posts...", i)
		}
	}
	return posts, nil
}

// createThreads grows a reply tree under roughly half the posts: a few root
// comments each, some with replies, some replies with nested replies.
func createThreads(f *Factory, users []*models.User, posts []*models.Post) (int, error) {
	created := 0
	for _, post := range posts {
		if f.r.Float32() < 0.5 {
			continue
		}

		numRoots := f.r.Intn(4) + 1
		for i := 0; i < numRoots; i++ {
			root, err := f.CreateComment(post, users[f.r.Intn(len(users))], nil)
			if err != nil {
				return created, err
			}
			created++

			numReplies := f.r.Intn(7)
			for j := 0; j < numReplies; j++ {
				reply, err := f.CreateComment(post, users[f.r.Intn(len(users))], root)
				if err != nil {
					return created, err
				}
				created++

				if f.r.Float32() < 0.3 {
					if _, err := f.CreateComment(post, users[f.r.Intn(len(users))], reply); err != nil {
						return created, err
					}
					created++
				}
			}
		}
	}
	return created, nil
}

func createEngagement(f *Factory, users []*models.User, posts []*models.Post) error {
	for _, post := range posts {
		numLikes := f.r.Intn(len(users)/2 + 1)
		for i := 0; i < numLikes; i++ {
			if err := f.LikePost(users[f.r.Intn(len(users))], post); err != nil {
				return err
			}
		}

		if f.r.Float32() < 0.2 {
			bookmark := &models.Bookmark{
				UserID: users[f.r.Intn(len(users))].ID,
				PostID: post.ID,
			}
			// duplicate pairs are fine to skip
			_ = f.db.Create(bookmark).Error
		}
	}

	// a sparse follow mesh
	for _, follower := range users {
		numFollows := f.r.Intn(5)
		for i := 0; i < numFollows; i++ {
			if err := f.Follow(follower, users[f.r.Intn(len(users))]); err != nil {
				return err
			}
		}
	}
	return nil
}
