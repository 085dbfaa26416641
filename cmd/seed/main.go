// Command seed fills the configured database with demo users, follows and posts.
package main

import (
	"context"
	"flag"
	"log"

	"threads/internal/bootstrap"
	"threads/internal/config"
	"threads/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numPosts := flag.Int("posts", 200, "Number of posts to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	fast := flag.Bool("fast", false, "Hash the shared password with the minimum bcrypt cost")
	flag.Parse()

	log.Printf("Seeding %d users and %d posts (clean=%v)", *numUsers, *numPosts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, _, err := bootstrap.InitRuntime(cfg, bootstrap.Options{ApplySchema: true})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer bootstrap.Close(db, nil)

	s, err := seed.NewSeeder(db, seed.Options{SkipBcrypt: *fast})
	if err != nil {
		log.Fatalf("Failed to create seeder: %v", err)
	}

	ctx := context.Background()
	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	res, err := s.Run(ctx, *numUsers, *numPosts)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Created %d users, %d follows, %d posts, %d likes, %d comments",
		res.Users, res.Follows, res.Posts, res.Likes, res.Comments)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
