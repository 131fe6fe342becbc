package analyses

import (
	"database/sql"
	"time"
)

var sqliteDialect = sqlDialect{
	name: "sqlite",
	insert: `
INSERT INTO analyses (upload_id, file_hash, chunks_count, failed_chunks, analyzed_tasks, created_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (file_hash) DO NOTHING`,
	findByHash: `
SELECT upload_id
FROM analyses
WHERE file_hash = ?
ORDER BY created_at DESC
LIMIT 1`,
	getByHash: `
SELECT ` + selectColumns + `
FROM analyses
WHERE file_hash = ?
ORDER BY created_at DESC
LIMIT 1`,
	getByID: `
SELECT ` + selectColumns + `
FROM analyses
WHERE upload_id = ?
LIMIT 1`,
	getTasks: `
SELECT analyzed_tasks
FROM analyses
WHERE upload_id = ?
LIMIT 1`,
	encodeTime: func(t time.Time) any { return t.UTC().Format(time.RFC3339Nano) },
}

// SQLiteRepo implements Store on an embedded SQLite database.
type SQLiteRepo struct {
	sqlStore
}

// NewSQLiteRepo constructs a SQLiteRepo on a migrated database.
func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{sqlStore{db: db, d: sqliteDialect}}
}

var _ Store = (*SQLiteRepo)(nil)
