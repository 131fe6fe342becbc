package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"compliance-backend/internal/shared/telemetry"
)

// sqlDialect holds the statements that differ between SQL backends.
type sqlDialect struct {
	name       string
	insert     string
	findByHash string
	getByHash  string
	getByID    string
	getTasks   string
	encodeTime func(time.Time) any
}

const selectColumns = `upload_id, file_hash, chunks_count, failed_chunks, analyzed_tasks, created_at`

// sqlStore implements Store over database/sql. The unique index on file_hash
// makes Save an atomic insert-or-get across processes.
type sqlStore struct {
	db *sql.DB
	d  sqlDialect
}

func (s *sqlStore) FindByHash(ctx context.Context, hash string) (string, bool, error) {
	var uploadID string
	err := s.db.QueryRowContext(ctx, s.d.findByHash, hash).Scan(&uploadID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s find by hash: %w", s.d.name, err)
	}
	return uploadID, true, nil
}

func (s *sqlStore) Save(ctx context.Context, rec Record) (Record, bool, error) {
	if rec.AnalyzedTasks == nil {
		rec.AnalyzedTasks = []Task{}
	}
	payload, err := json.Marshal(rec.AnalyzedTasks)
	if err != nil {
		return Record{}, false, fmt.Errorf("encode tasks: %w", err)
	}
	res, err := s.db.ExecContext(ctx, s.d.insert,
		rec.UploadID,
		rec.FileHash,
		rec.SourceDocumentChunksCount,
		rec.FailedChunksCount,
		string(payload),
		s.d.encodeTime(rec.Timestamp),
	)
	if err != nil {
		return Record{}, false, fmt.Errorf("%s insert analysis: %w", s.d.name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		return rec, true, nil
	}

	existing, err := s.scanRecord(s.db.QueryRowContext(ctx, s.d.getByHash, rec.FileHash))
	if err != nil {
		return Record{}, false, fmt.Errorf("%s read existing analysis: %w", s.d.name, err)
	}
	return existing, false, nil
}

func (s *sqlStore) GetTasks(ctx context.Context, uploadID string) ([]Task, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, s.d.getTasks, uploadID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []Task{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s get tasks: %w", s.d.name, err)
	}
	return decodeTasks(uploadID, raw), nil
}

func (s *sqlStore) Get(ctx context.Context, uploadID string) (Record, error) {
	rec, err := s.scanRecord(s.db.QueryRowContext(ctx, s.d.getByID, uploadID))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("%s get analysis: %w", s.d.name, err)
	}
	return rec, nil
}

func (s *sqlStore) scanRecord(row *sql.Row) (Record, error) {
	var rec Record
	var tasks sql.NullString
	var created dbTime
	if err := row.Scan(&rec.UploadID, &rec.FileHash, &rec.SourceDocumentChunksCount, &rec.FailedChunksCount, &tasks, &created); err != nil {
		return Record{}, err
	}
	rec.AnalyzedTasks = decodeTasks(rec.UploadID, tasks)
	rec.Timestamp = created.Time
	return rec, nil
}

// decodeTasks reads a stored task list. Corrupt payloads decode to an empty list.
func decodeTasks(uploadID string, raw sql.NullString) []Task {
	if !raw.Valid || raw.String == "" {
		return []Task{}
	}
	var tasks []Task
	if err := json.Unmarshal([]byte(raw.String), &tasks); err != nil {
		telemetry.Warn("analysis tasks corrupt", map[string]any{"upload_id": uploadID, "error": err})
		return []Task{}
	}
	if tasks == nil {
		return []Task{}
	}
	return tasks
}

// dbTime scans timestamps stored natively or as RFC 3339 text.
type dbTime struct {
	Time time.Time
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *dbTime) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}
