package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ChunkSize is the buffer size used when streaming data into storage.
const ChunkSize = 64 * 1024

// ErrNotFound is returned when a path does not exist.
var ErrNotFound = errors.New("storage: not found")

// FileInfo contains metadata about a stored file or directory.
type FileInfo struct {
	Path         string
	Size         int64
	LastModified time.Time
	IsDir        bool
}

// Storage defines the filesystem operations needed by the service.
type Storage interface {
	// Upload streams reader into the file at path in ChunkSize chunks,
	// creating parent directories. Returns the number of bytes written.
	Upload(ctx context.Context, path string, reader io.Reader) (int64, error)

	// Create opens the file at path for writing, truncating it if it exists.
	// The caller must close the returned writer.
	Create(ctx context.Context, path string) (io.WriteCloser, error)

	// Download returns a reader for the file at the given path.
	// The caller is responsible for closing the returned ReadCloser.
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Stat returns metadata for path, or an error wrapping ErrNotFound.
	Stat(ctx context.Context, path string) (FileInfo, error)

	// Delete recursively removes path. Returns nil if it does not exist.
	Delete(ctx context.Context, path string) error

	// Exists checks whether path exists.
	Exists(ctx context.Context, path string) (bool, error)

	// MkdirAll creates the directory at path along with any parents.
	MkdirAll(ctx context.Context, path string) error

	// List returns the immediate children of the directory at path, sorted
	// by name. A missing directory yields an empty list.
	List(ctx context.Context, path string) ([]FileInfo, error)
}
