package analyses

import (
	"database/sql"
	"time"
)

var postgresDialect = sqlDialect{
	name: "postgres",
	insert: `
INSERT INTO analyses (upload_id, file_hash, chunks_count, failed_chunks, analyzed_tasks, created_at)
VALUES ($1, $2, $3, $4, $5::jsonb, $6)
ON CONFLICT (file_hash) DO NOTHING`,
	findByHash: `
SELECT upload_id
FROM analyses
WHERE file_hash = $1
ORDER BY created_at DESC
LIMIT 1`,
	getByHash: `
SELECT ` + selectColumns + `
FROM analyses
WHERE file_hash = $1
ORDER BY created_at DESC
LIMIT 1`,
	getByID: `
SELECT ` + selectColumns + `
FROM analyses
WHERE upload_id = $1
LIMIT 1`,
	getTasks: `
SELECT analyzed_tasks::text
FROM analyses
WHERE upload_id = $1
LIMIT 1`,
	encodeTime: func(t time.Time) any { return t.UTC() },
}

// PGRepo implements Store using Postgres. Tasks live in a JSONB column.
type PGRepo struct {
	sqlStore
}

// NewPGRepo constructs a PGRepo on an open pgx-backed pool.
func NewPGRepo(db *sql.DB) *PGRepo {
	return &PGRepo{sqlStore{db: db, d: postgresDialect}}
}

var _ Store = (*PGRepo)(nil)
