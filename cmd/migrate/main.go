package main

// Run database migrations for the configured store:
//   go run ./cmd/migrate

import (
	"context"
	"database/sql"
	"os"

	"compliance-backend/internal/shared/config"
	"compliance-backend/internal/shared/storage/db"
	"compliance-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	if logger, err := telemetry.New(cfg.LogLevel); err == nil {
		telemetry.SetLogger(logger)
	}
	defer telemetry.Sync()
	ctx := context.Background()

	var (
		sqlDB   *sql.DB
		dialect string
		err     error
	)
	switch cfg.StoreType {
	case "postgres":
		dialect = db.DialectPostgres
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	case "sqlite":
		dialect = db.DialectSQLite
		sqlDB, err = db.OpenSQLite(ctx, cfg.SQLitePath)
	default:
		telemetry.Info("store has no schema to migrate", map[string]any{"store": cfg.StoreType})
		return
	}
	if err != nil {
		telemetry.Error("failed to connect database", map[string]any{"error": err, "store": cfg.StoreType})
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB, dialect); err != nil {
		telemetry.Error("failed to run migrations", map[string]any{"error": err, "store": cfg.StoreType})
		os.Exit(1)
	}
	telemetry.Info("migrations applied", map[string]any{"store": cfg.StoreType})
}
