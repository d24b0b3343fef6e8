// Package localfs keeps uploaded document bodies on the local filesystem.
// Keys are flat names, one file per key, no subdirectories.
package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const defaultBasePath = "./data/storage"

// Storage writes and reads raw document bodies under a single base directory.
type Storage struct {
	basePath string
}

// New creates the base directory if needed and returns a store rooted there.
func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = defaultBasePath
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{basePath: basePath}, nil
}

// Save stores the body under key, replacing any previous content. The body is
// written to a temporary file first and renamed into place so readers never
// observe a partial write.
func (s *Storage) Save(_ context.Context, key string, data io.Reader) error {
	if err := validateKey(key); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.basePath, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, filepath.Join(s.basePath, key)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("finalize file: %w", err)
	}
	return nil
}

// Open returns a reader over the stored body. The caller closes it.
func (s *Storage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.basePath, key))
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

// validateKey rejects keys that would escape the base directory.
func validateKey(key string) error {
	if key == "" {
		return errors.New("storage key is empty")
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("storage key %q contains path elements", key)
	}
	return nil
}
