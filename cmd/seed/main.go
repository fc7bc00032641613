// Command seed creates a demo account with posts and a draft.
package main

import (
	"context"
	"flag"
	"log"

	"inkwell/internal/bootstrap"
	"inkwell/internal/config"
	"inkwell/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	email := flag.String("email", defaults.Email, "Demo account email")
	password := flag.String("password", defaults.Password, "Demo account password")
	posts := flag.Int("posts", defaults.Posts, "Number of posts to create")
	draft := flag.Bool("draft", defaults.WithDraft, "Also save an autosave draft")
	fakerSeed := flag.Int64("faker-seed", 0, "Fixed faker seed for reproducible content")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, redisClient, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	svcs, err := bootstrap.NewServices(cfg, db, redisClient)
	if err != nil {
		log.Fatalf("Failed to build services: %v", err)
	}

	result, err := seed.Demo(context.Background(), svcs.Auth, svcs.Posts, seed.Options{
		Email:     *email,
		Password:  *password,
		Posts:     *posts,
		WithDraft: *draft,
		Seed:      *fakerSeed,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %s: %d posts, draft=%t", result.User.Email, result.Posts, result.Draft)
	log.Printf("Log in with password: %s", *password)
}
