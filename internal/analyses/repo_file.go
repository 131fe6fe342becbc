package analyses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"compliance-backend/internal/shared/telemetry"
)

// DefaultStoreFile is the JSON collection used when none is configured.
const DefaultStoreFile = "mock_analyzed_tasks.json"

// FileRepo keeps every record in a single JSON array on disk. Reads that
// fail to read or decode the file are treated as an empty store. Writes
// replace the file atomically and are serialized within the process.
type FileRepo struct {
	path string
	mu   sync.Mutex
}

// NewFileRepo constructs a FileRepo at path, creating parent directories.
func NewFileRepo(path string) (*FileRepo, error) {
	if path == "" {
		path = DefaultStoreFile
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	return &FileRepo{path: path}, nil
}

// Path returns the backing file.
func (r *FileRepo) Path() string { return r.path }

// load returns the stored records. A missing file is an empty store; an
// undecodable one is reported through corrupt and also read as empty. Any
// other read failure is returned as err for the caller to classify.
func (r *FileRepo) load() (records []Record, corrupt error, err error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("read store: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil, nil
	}
	if err := json.Unmarshal(raw, &records); err != nil {
		corrupt = &StoreCorruptionError{Path: r.path, Err: err}
		telemetry.Error("analysis store corrupt, treating as empty", map[string]any{
			"path":  r.path,
			"error": corrupt,
		})
		return nil, corrupt, nil
	}
	return records, nil, nil
}

func (r *FileRepo) read(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	records, _, err := r.load()
	if err != nil {
		telemetry.Error("analysis store unreadable, treating as empty", map[string]any{
			"path":  r.path,
			"error": &StoreCorruptionError{Path: r.path, Err: err},
		})
		return nil, nil
	}
	return records, nil
}

// FindByHash scans newest first.
func (r *FileRepo) FindByHash(ctx context.Context, hash string) (string, bool, error) {
	records, err := r.read(ctx)
	if err != nil {
		return "", false, err
	}
	if rec, ok := latestByHash(records, hash); ok {
		return rec.UploadID, true, nil
	}
	return "", false, nil
}

// Save appends rec unless its hash is already stored. A corrupt file is moved
// aside before the new collection is written; an unreadable one fails Save.
func (r *FileRepo) Save(ctx context.Context, rec Record) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	records, corrupt, err := r.load()
	if err != nil {
		return Record{}, false, err
	}
	if existing, ok := latestByHash(records, rec.FileHash); ok {
		return existing, false, nil
	}
	if corrupt != nil {
		aside := fmt.Sprintf("%s.corrupt-%d", r.path, time.Now().UnixNano())
		if err := os.Rename(r.path, aside); err != nil {
			return Record{}, false, fmt.Errorf("move corrupt store aside: %w", err)
		}
		telemetry.Warn("analysis store moved aside", map[string]any{"path": aside})
	}

	if rec.AnalyzedTasks == nil {
		rec.AnalyzedTasks = []Task{}
	}
	records = append(records, rec)
	if err := r.write(records); err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func (r *FileRepo) write(records []Record) error {
	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp store: %w", err)
	}
	tmpName := tmp.Name()
	_, err = tmp.Write(payload)
	if syncErr := tmp.Sync(); err == nil {
		err = syncErr
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write temp store: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}

// GetTasks returns the record's tasks, or an empty slice for unknown ids.
func (r *FileRepo) GetTasks(ctx context.Context, uploadID string) ([]Task, error) {
	rec, err := r.Get(ctx, uploadID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []Task{}, nil
		}
		return nil, err
	}
	return rec.AnalyzedTasks, nil
}

// Get returns the newest record with uploadID.
func (r *FileRepo) Get(ctx context.Context, uploadID string) (Record, error) {
	records, err := r.read(ctx)
	if err != nil {
		return Record{}, err
	}
	if rec, ok := latestByID(records, uploadID); ok {
		if rec.AnalyzedTasks == nil {
			rec.AnalyzedTasks = []Task{}
		}
		return rec, nil
	}
	return Record{}, ErrNotFound
}

var _ Store = (*FileRepo)(nil)
