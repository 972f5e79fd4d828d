// Package local implements storage.Storage on an afero filesystem rooted at
// a base directory.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/kbukum/whisperbatch/logger"
	"github.com/kbukum/whisperbatch/storage"
)

func init() {
	storage.RegisterFactory(storage.ProviderLocal, func(cfg storage.Config, _ *logger.Logger) (storage.Storage, error) {
		return NewStorage(cfg.BasePath)
	})
	storage.RegisterFactory(storage.ProviderMemory, func(storage.Config, *logger.Logger) (storage.Storage, error) {
		return NewStorageWithFs(afero.NewMemMapFs()), nil
	})
}

const (
	dirPerm  = 0o750
	filePerm = 0o640
)

// Storage implements storage.Storage over an afero.Fs.
type Storage struct {
	fs afero.Fs
}

// NewStorage creates a storage rooted at basePath on the OS filesystem,
// creating the directory if needed.
func NewStorage(basePath string) (*Storage, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve base path: %w", err)
	}
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(abs, dirPerm); err != nil {
		return nil, fmt.Errorf("storage: create base directory: %w", err)
	}
	return &Storage{fs: afero.NewBasePathFs(osFs, abs)}, nil
}

// NewStorageWithFs creates a storage over an existing filesystem, typically
// afero.NewMemMapFs() in tests.
func NewStorageWithFs(fsys afero.Fs) *Storage {
	return &Storage{fs: fsys}
}

// clean roots p so that relative and absolute forms address the same file.
func clean(p string) string {
	return path.Join("/", filepath.ToSlash(p))
}

// Upload streams reader into a file in storage.ChunkSize chunks.
// A partially written file is removed when the copy fails.
func (s *Storage) Upload(ctx context.Context, p string, reader io.Reader) (int64, error) {
	p = clean(p)
	if err := s.fs.MkdirAll(path.Dir(p), dirPerm); err != nil {
		return 0, fmt.Errorf("storage: create directory: %w", err)
	}

	f, err := s.fs.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return 0, fmt.Errorf("storage: create file: %w", err)
	}

	written, copyErr := copyChunked(ctx, f, reader)
	closeErr := f.Close()
	if copyErr == nil && closeErr != nil {
		copyErr = fmt.Errorf("storage: close file: %w", closeErr)
	}
	if copyErr != nil {
		_ = s.fs.Remove(p)
		return written, copyErr
	}
	return written, nil
}

func copyChunked(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, storage.ChunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, readErr := src.Read(buf)
		if n > 0 {
			m, err := dst.Write(buf[:n])
			written += int64(m)
			if err != nil {
				return written, fmt.Errorf("storage: write file: %w", err)
			}
			if m != n {
				return written, fmt.Errorf("storage: write file: %w", io.ErrShortWrite)
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, fmt.Errorf("storage: read source: %w", readErr)
		}
	}
}

// Create opens a file for writing, creating parent directories.
func (s *Storage) Create(_ context.Context, p string) (io.WriteCloser, error) {
	p = clean(p)
	if err := s.fs.MkdirAll(path.Dir(p), dirPerm); err != nil {
		return nil, fmt.Errorf("storage: create directory: %w", err)
	}
	f, err := s.fs.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return nil, fmt.Errorf("storage: create file: %w", err)
	}
	return f, nil
}

// Download returns a reader for the file at the given path.
func (s *Storage) Download(_ context.Context, p string) (io.ReadCloser, error) {
	f, err := s.fs.Open(clean(p))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, p)
		}
		return nil, fmt.Errorf("storage: open file: %w", err)
	}
	return f, nil
}

// Stat returns metadata for the given path.
func (s *Storage) Stat(_ context.Context, p string) (storage.FileInfo, error) {
	p = clean(p)
	info, err := s.fs.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return storage.FileInfo{}, fmt.Errorf("%w: %s", storage.ErrNotFound, p)
		}
		return storage.FileInfo{}, fmt.Errorf("storage: stat: %w", err)
	}
	return toFileInfo(p, info), nil
}

// Delete recursively removes the given path. A missing path is not an error.
func (s *Storage) Delete(_ context.Context, p string) error {
	p = clean(p)
	if p == "/" {
		return fmt.Errorf("storage: refusing to delete the storage root")
	}
	if err := s.fs.RemoveAll(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete: %w", err)
	}
	return nil
}

// Exists checks whether the given path exists.
func (s *Storage) Exists(_ context.Context, p string) (bool, error) {
	ok, err := afero.Exists(s.fs, clean(p))
	if err != nil {
		return false, fmt.Errorf("storage: stat: %w", err)
	}
	return ok, nil
}

// MkdirAll creates the directory at path along with any parents.
func (s *Storage) MkdirAll(_ context.Context, p string) error {
	if err := s.fs.MkdirAll(clean(p), dirPerm); err != nil {
		return fmt.Errorf("storage: create directory: %w", err)
	}
	return nil
}

// List returns the immediate children of a directory, sorted by name.
func (s *Storage) List(_ context.Context, p string) ([]storage.FileInfo, error) {
	p = clean(p)
	entries, err := afero.ReadDir(s.fs, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []storage.FileInfo{}, nil
		}
		return nil, fmt.Errorf("storage: list %s: %w", p, err)
	}

	files := make([]storage.FileInfo, 0, len(entries))
	for _, info := range entries {
		files = append(files, toFileInfo(path.Join(p, info.Name()), info))
	}
	return files, nil
}

func toFileInfo(p string, info os.FileInfo) storage.FileInfo {
	return storage.FileInfo{
		Path:         p,
		Size:         info.Size(),
		LastModified: info.ModTime(),
		IsDir:        info.IsDir(),
	}
}

var _ storage.Storage = (*Storage)(nil)
