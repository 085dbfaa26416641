package seed

import (
	"context"
	"fmt"
	"log/slog"

	"threads/internal/models"
	"threads/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Seeder fills a database with a connected graph of users and their content.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

// NewSeeder returns a Seeder for db.
func NewSeeder(db *gorm.DB, opts Options) (*Seeder, error) {
	f, err := NewFactory(db, opts)
	if err != nil {
		return nil, err
	}
	return &Seeder{db: db, factory: f}, nil
}

// Result counts what a run created.
type Result struct {
	Users    int
	Follows  int
	Posts    int
	Likes    int
	Comments int
}

// ClearAll deletes every row of the content and user tables, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	db := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []any{&models.Like{}, &models.Comment{}, &models.Post{}, &models.Follow{}, &models.User{}} {
		if err := db.Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	observability.GlobalLogger.InfoContext(ctx, "seed: cleared existing data")
	return nil
}

// Run creates numUsers users following each other at random, numPosts posts
// spread over them, and likes and comments on those posts.
func (s *Seeder) Run(ctx context.Context, numUsers, numPosts int) (*Result, error) {
	if numUsers <= 0 {
		return nil, fmt.Errorf("numUsers must be positive, got %d", numUsers)
	}
	f := s.factory
	res := &Result{}

	users := make([]*models.User, 0, numUsers)
	for range numUsers {
		u, err := f.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
	}
	res.Users = len(users)

	follows, err := s.seedFollows(ctx, users)
	if err != nil {
		return nil, err
	}
	res.Follows = follows

	posts := make([]*models.Post, 0, numPosts)
	for range numPosts {
		posts = append(posts, f.BuildPost(users[f.rng.IntN(len(users))]))
	}
	if err := f.CreatePostsBatch(posts); err != nil {
		return nil, fmt.Errorf("create posts: %w", err)
	}
	res.Posts = len(posts)

	for _, post := range posts {
		for _, u := range users {
			if u.ID == post.AuthorID {
				continue
			}
			switch f.rng.IntN(10) {
			case 0, 1, 2:
				like := models.Like{UserID: u.ID, PostID: post.ID}
				if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
					return nil, fmt.Errorf("create like: %w", err)
				}
				res.Likes++
			case 3:
				if _, err := f.CreateComment(u, post); err != nil {
					return nil, fmt.Errorf("create comment: %w", err)
				}
				res.Comments++
			}
		}
	}

	observability.GlobalLogger.InfoContext(ctx, "seed: done",
		slog.Int("users", res.Users),
		slog.Int("follows", res.Follows),
		slog.Int("posts", res.Posts),
		slog.Int("likes", res.Likes),
		slog.Int("comments", res.Comments),
	)
	return res, nil
}

// seedFollows gives every user between one and five distinct followees.
func (s *Seeder) seedFollows(ctx context.Context, users []*models.User) (int, error) {
	if len(users) < 2 {
		return 0, nil
	}
	var edges []models.Follow
	for _, u := range users {
		want := min(s.factory.rng.IntN(5)+1, len(users)-1)
		picked := make(map[uint]struct{}, want)
		for len(picked) < want {
			other := users[s.factory.rng.IntN(len(users))]
			if other.ID == u.ID {
				continue
			}
			if _, dup := picked[other.ID]; dup {
				continue
			}
			picked[other.ID] = struct{}{}
			edges = append(edges, models.Follow{FollowerID: u.ID, FollowingID: other.ID})
		}
	}
	if err := s.db.WithContext(ctx).Create(&edges).Error; err != nil {
		return 0, fmt.Errorf("create follows: %w", err)
	}
	return len(edges), nil
}
