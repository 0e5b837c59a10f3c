package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gulfplacement/placement/internal/shared"
)

// Storage keeps uploaded file contents.
type Storage interface {
	Save(ctx context.Context, key string, data []byte) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// LocalStorage stores files in a directory on disk.
type LocalStorage struct {
	dir string
}

// NewLocalStorage creates dir when missing.
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("documents: create upload dir: %w", err)
	}
	return &LocalStorage{dir: dir}, nil
}

func (s *LocalStorage) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("documents: invalid storage key %q", key)
	}
	return filepath.Join(s.dir, key), nil
}

// Save writes data under key. Existing keys are not overwritten.
func (s *LocalStorage) Save(_ context.Context, key string, data []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return fmt.Errorf("documents: create file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(p)
		return fmt.Errorf("documents: write file: %w", err)
	}
	return f.Close()
}

// Open returns a reader for key.
func (s *LocalStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("documents: open file: %w", err)
	}
	return f, nil
}

// Remove deletes key. Missing files are ignored.
func (s *LocalStorage) Remove(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("documents: remove file: %w", err)
	}
	return nil
}
