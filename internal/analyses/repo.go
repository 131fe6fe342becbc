package analyses

import "context"

// Store persists analysis records keyed by upload id and file hash.
type Store interface {
	// FindByHash returns the upload id of the newest record with hash.
	FindByHash(ctx context.Context, hash string) (uploadID string, ok bool, err error)
	// Save inserts rec unless a record with the same hash exists, in which
	// case the existing record is returned with created=false.
	Save(ctx context.Context, rec Record) (stored Record, created bool, err error)
	// GetTasks returns the tasks of a record, or an empty slice for unknown ids.
	GetTasks(ctx context.Context, uploadID string) ([]Task, error)
	// Get returns a record or ErrNotFound.
	Get(ctx context.Context, uploadID string) (Record, error)
}
