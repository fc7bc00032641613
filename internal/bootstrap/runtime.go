// Package bootstrap wires runtime dependencies shared by the server and
// the command-line tools.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"inkwell/internal/auth"
	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/featureflags"
	"inkwell/internal/middleware"
	"inkwell/internal/repository"
	"inkwell/internal/seed"
	"inkwell/internal/service"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedDemo bool
}

// Services is the application layer built over one database and cache.
type Services struct {
	Auth  *service.AuthService
	Posts *service.PostService
}

// InitRuntime connects to DB and Redis and optionally seeds a demo account.
// The Redis client is nil when Redis is unreachable.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	r := cache.InitRedis(cfg.RedisURL)

	if opts.SeedDemo {
		svcs, err := NewServices(cfg, db, r)
		if err != nil {
			closeRuntime(db, r)
			return nil, nil, err
		}
		result, err := seed.Demo(context.Background(), svcs.Auth, svcs.Posts, seed.DefaultOptions())
		if err != nil {
			closeRuntime(db, r)
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
		middleware.Logger.Info("Seeded demo account",
			slog.String("email", result.User.Email),
			slog.Int("posts", result.Posts),
		)
	}

	return db, r, nil
}

func closeRuntime(db *gorm.DB, r *redis.Client) {
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			middleware.Logger.Warn("Failed to close database", slog.String("error", err.Error()))
		}
	}
	if r != nil {
		if err := r.Close(); err != nil {
			middleware.Logger.Warn("Failed to close Redis client", slog.String("error", err.Error()))
		}
	}
}

// NewServices builds the auth and post services. redisClient may be nil.
func NewServices(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Services, error) {
	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.SessionTTL())
	if err != nil {
		return nil, fmt.Errorf("token manager: %w", err)
	}
	hasher := auth.NewBcryptHasher(cfg.BcryptCost, cfg.BcryptMaxConcurrency)

	return &Services{
		Auth: service.NewAuthService(repository.NewUserRepository(db), tokens, hasher),
		Posts: service.NewPostService(
			repository.NewPostRepository(db),
			repository.NewAutosaveRepository(db),
			cache.New(redisClient),
			cfg.AutosaveCacheTTL(),
		).WithFlags(featureflags.NewManager(cfg.FeatureFlags)),
	}, nil
}
