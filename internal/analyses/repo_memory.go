package analyses

import (
	"context"
	"errors"
	"sync"
)

// MemoryRepo stores records in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

// FindByHash scans newest first.
func (r *MemoryRepo) FindByHash(ctx context.Context, hash string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rec, ok := latestByHash(r.records, hash); ok {
		return rec.UploadID, true, nil
	}
	return "", false, nil
}

// Save appends rec unless its hash is already stored.
func (r *MemoryRepo) Save(ctx context.Context, rec Record) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := latestByHash(r.records, rec.FileHash); ok {
		return existing, false, nil
	}
	r.records = append(r.records, cloneRecord(rec))
	return rec, true, nil
}

// GetTasks returns a copy of the record's tasks.
func (r *MemoryRepo) GetTasks(ctx context.Context, uploadID string) ([]Task, error) {
	rec, err := r.Get(ctx, uploadID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []Task{}, nil
		}
		return nil, err
	}
	return rec.AnalyzedTasks, nil
}

// Get returns a copy of the record.
func (r *MemoryRepo) Get(ctx context.Context, uploadID string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rec, ok := latestByID(r.records, uploadID); ok {
		return cloneRecord(rec), nil
	}
	return Record{}, ErrNotFound
}

func latestByHash(records []Record, hash string) (Record, bool) {
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].FileHash == hash {
			return records[i], true
		}
	}
	return Record{}, false
}

func latestByID(records []Record, uploadID string) (Record, bool) {
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].UploadID == uploadID {
			return records[i], true
		}
	}
	return Record{}, false
}

func cloneRecord(rec Record) Record {
	out := rec
	out.AnalyzedTasks = append([]Task{}, rec.AnalyzedTasks...)
	return out
}

var _ Store = (*MemoryRepo)(nil)
