// Package testutil provides shared fixtures for backend tests.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"inkwell/internal/config"
	"inkwell/internal/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

// SQLiteConfig returns a config pointing at a private in-memory SQLite database.
func SQLiteConfig(t *testing.T) *config.Config {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return &config.Config{
		Port:         "0",
		Env:          "test",
		JWTSecret:    "test-secret-that-is-at-least-32-chars!!",
		BcryptCost:   4,
		DBDriver:     "sqlite",
		DBSQLitePath: fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1)),
		DBSchemaMode: database.SchemaModeSQL,
	}
}

// NewSQLiteDB opens a migrated in-memory database that lives as long as the test.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(SQLiteConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// NewRedis starts an in-process Redis and returns a client for it.
func NewRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}
