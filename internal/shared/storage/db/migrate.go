package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

// Supported migration dialects.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

// goose keeps its base FS and dialect in package state.
var gooseMu sync.Mutex

// RunMigrations applies embedded SQL migrations via goose. If database is nil, it's a no-op.
func RunMigrations(ctx context.Context, database *sql.DB, dialect string) error {
	if database == nil {
		return nil
	}
	var dir string
	switch dialect {
	case DialectPostgres:
		dir = "migrations/postgres"
	case DialectSQLite:
		dir = "migrations/sqlite"
	default:
		return fmt.Errorf("unsupported migration dialect %q", dialect)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	return goose.UpContext(ctx, database, dir)
}
