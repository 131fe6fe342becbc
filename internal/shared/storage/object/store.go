package object

import (
	"context"
	"io"
)

// ObjectStore saves and retrieves binary objects by storage key.
type ObjectStore interface {
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}

// SourceKey is the archive location of an analyzed source document.
func SourceKey(fileHash string) string {
	return "sources/" + fileHash + ".pdf"
}
