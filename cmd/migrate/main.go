// Command migrate runs schema operations against the configured database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"inkwell/internal/config"
	"inkwell/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <up|auto|status|down> [version]")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		if err := database.RunMigrations(ctx, db, cfg.DBDriver); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		log.Println("sql migrations applied")
	case "auto":
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return fmt.Errorf("auto schema apply failed: %w", err)
		}
		log.Println("automigrations applied")
	case "status":
		status, err := database.GetSchemaStatus(ctx, db, cfg)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		log.Printf("mode=%s env=%s driver=%s version=%d pending=%d",
			status.Mode, status.Environment, status.Driver, status.CurrentVersion, len(status.PendingMigrations))
		for _, name := range status.PendingMigrations {
			log.Printf("pending: %s", name)
		}
	case "down":
		// Without a version only the latest migration is rolled back.
		version := int64(-1)
		if flag.NArg() >= 2 {
			version, err = strconv.ParseInt(flag.Arg(1), 10, 64)
			if err != nil || version < 0 {
				return fmt.Errorf("invalid version %q", flag.Arg(1))
			}
		}
		if err := database.RollbackMigration(ctx, db, cfg.DBDriver, version); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		log.Println("rollback complete")
	default:
		return usage()
	}

	return nil
}
