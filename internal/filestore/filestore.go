package filestore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Download when no file exists at the given path.
var ErrNotFound = errors.New("file not found")

// FileStore persists uploaded image bytes and serves them back by the
// relative path returned from Save. Paths are relative to the storage root
// so they are portable and safe to persist in receipt rows.
type FileStore interface {
	Save(ctx context.Context, originalName string, data []byte) (relativePath string, err error)
	Download(ctx context.Context, relativePath string) ([]byte, error)
	Delete(ctx context.Context, relativePath string) error
}
