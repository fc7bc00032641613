package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"inkwell/internal/config"
	"inkwell/internal/middleware"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx database/sql driver used by goose
	"github.com/pressly/goose/v3"
	"gorm.io/gorm"
)

const (
	SchemaModeSQL  = "sql"
	SchemaModeAuto = "auto"
)

//go:embed migrations/*/*.sql
var migrationFS embed.FS

// goose keeps its dialect and filesystem in package globals.
var gooseMu sync.Mutex

// SchemaStatus describes what ApplySchema would do and where the database is.
type SchemaStatus struct {
	Mode              string
	Environment       string
	Driver            string
	CurrentVersion    int64
	PendingMigrations []string
}

type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...interface{}) {
	middleware.Logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "goose"))
}

func (gooseLogger) Fatalf(format string, v ...interface{}) {
	middleware.Logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "goose"))
}

func normalizedSchemaMode(cfg *config.Config) string {
	mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))
	if mode == "" {
		return SchemaModeSQL
	}
	return mode
}

func gooseDialect(driver string) (dialect, dir string, err error) {
	switch driver {
	case "", "postgres":
		return "pgx", "migrations/postgres", nil
	case "sqlite":
		return "sqlite3", "migrations/sqlite", nil
	default:
		return "", "", fmt.Errorf("no migrations for DB_DRIVER %q", driver)
	}
}

// withGoose runs fn with goose bound to the embedded migrations for driver.
func withGoose(driver string, fn func(dir string) error) error {
	dialect, dir, err := gooseDialect(driver)
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationFS)
	goose.SetLogger(gooseLogger{})
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return fn(dir)
}

// ApplySchema brings the database schema up to date using the configured mode.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	mode := normalizedSchemaMode(cfg)
	switch mode {
	case SchemaModeSQL:
		if err := RunMigrations(ctx, db, cfg.DBDriver); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	case SchemaModeAuto:
		if cfg.IsProduction() {
			middleware.Logger.Warn("DB_SCHEMA_MODE=auto in production; review schema diffs before deploying")
		}
		middleware.Logger.Info("Running GORM AutoMigrate", slog.String("env", cfg.Env))
		if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	default:
		return fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
	return nil
}

// RunMigrations applies every pending embedded migration.
func RunMigrations(ctx context.Context, db *gorm.DB, driver string) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return withGoose(driver, func(dir string) error {
		return goose.UpContext(ctx, sqlDB, dir)
	})
}

// RollbackMigration migrates down to version. A negative version rolls back
// only the latest migration.
func RollbackMigration(ctx context.Context, db *gorm.DB, driver string, version int64) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return withGoose(driver, func(dir string) error {
		if version < 0 {
			return goose.DownContext(ctx, sqlDB, dir)
		}
		return goose.DownToContext(ctx, sqlDB, dir, version)
	})
}

// GetSchemaStatus reports the applied version and pending migrations.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	status := &SchemaStatus{
		Mode:        normalizedSchemaMode(cfg),
		Environment: cfg.Env,
		Driver:      cfg.DBDriver,
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	err = withGoose(cfg.DBDriver, func(dir string) error {
		current, err := currentVersion(ctx, sqlDB)
		if err != nil {
			return err
		}
		status.CurrentVersion = current

		pending, err := goose.CollectMigrations(dir, current, goose.MaxVersion)
		if err != nil {
			return err
		}
		for _, m := range pending {
			if m.Version > current {
				status.PendingMigrations = append(status.PendingMigrations, filepath.Base(m.Source))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

func currentVersion(ctx context.Context, db *sql.DB) (int64, error) {
	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// MigrationFiles lists the embedded migration files for driver.
func MigrationFiles(driver string) ([]string, error) {
	_, dir, err := gooseDialect(driver)
	if err != nil {
		return nil, err
	}
	entries, err := fs.ReadDir(migrationFS, dir)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	return files, nil
}
