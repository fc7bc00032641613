package bootstrap

import (
	"context"
	"testing"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/seed"
	"inkwell/internal/testutil"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRuntime_SeedsDemoWithoutRedis(t *testing.T) {
	cfg := testutil.SQLiteConfig(t)

	db, redisClient, err := InitRuntime(cfg, Options{SeedDemo: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	assert.Nil(t, redisClient)

	svcs, err := NewServices(cfg, db, redisClient)
	require.NoError(t, err)

	defaults := seed.DefaultOptions()
	session, err := svcs.Auth.Login(context.Background(), defaults.Email, defaults.Password)
	require.NoError(t, err)

	posts, err := svcs.Posts.List(context.Background(), models.Identity{UserID: session.User.ID})
	require.NoError(t, err)
	assert.Len(t, posts, defaults.Posts)
}

func TestNewServices_UsesRedisWhenGiven(t *testing.T) {
	cfg := testutil.SQLiteConfig(t)
	mr, client := testutil.NewRedis(t)

	svcs, err := NewServices(cfg, testutil.NewSQLiteDB(t), client)
	require.NoError(t, err)

	ctx := context.Background()
	session, err := svcs.Auth.Register(ctx, "cached@example.com", "secret1")
	require.NoError(t, err)
	identity := models.Identity{UserID: session.User.ID, Email: session.User.Email}

	draft, err := svcs.Posts.GetAutosave(ctx, identity)
	require.NoError(t, err)
	assert.Nil(t, draft)
	assert.True(t, mr.Exists("autosave:"+session.User.ID))
}

func TestNewServices_RequiresSecret(t *testing.T) {
	cfg := testutil.SQLiteConfig(t)
	cfg.JWTSecret = ""

	_, err := NewServices(cfg, nil, nil)
	assert.Error(t, err)
}

func TestInitRuntime_ClosesConnectionsWhenSetupFails(t *testing.T) {
	cfg := testutil.SQLiteConfig(t)
	mr, _ := testutil.NewRedis(t)
	cfg.RedisURL = mr.Addr()
	cfg.JWTSecret = ""

	db, redisClient, err := InitRuntime(cfg, Options{SeedDemo: true})
	require.Error(t, err)
	assert.Nil(t, db)
	assert.Nil(t, redisClient)

	assert.Eventually(t, func() bool {
		return mr.CurrentConnectionCount() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestCloseRuntime(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	_, client := testutil.NewRedis(t)

	closeRuntime(db, client)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Error(t, sqlDB.Ping())
	assert.ErrorIs(t, client.Ping(context.Background()).Err(), redis.ErrClosed)

	assert.NotPanics(t, func() { closeRuntime(testutil.NewSQLiteDB(t), nil) })
}
