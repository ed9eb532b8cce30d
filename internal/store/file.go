package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mmcdole/crate/internal/domain"
)

// FileStore implements domain.BlobStore with one file per key.
// Writes land in a temp file in the same directory and are renamed into
// place, so readers see either the previous or the new contents.
type FileStore struct {
	dir string
	ext string
}

var _ domain.BlobStore = (*FileStore)(nil)

// NewFileStore creates dir if needed. ext is appended to every key
// (".json", ".yaml"); pass "" for bare keys.
func NewFileStore(dir, ext string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("file store requires a directory")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{dir: dir, ext: ext}, nil
}

// Path returns the file backing key.
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.dir, key+s.ext)
}

func (s *FileStore) Read(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return data, true, nil
}

func (s *FileStore) Write(key string, data []byte) error {
	return WriteFileAtomic(s.Path(key), data)
}

func (s *FileStore) Close() error { return nil }

// WriteFileAtomic writes data to path via a sibling temp file and rename.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("move %s into place: %w", filepath.Base(path), err)
	}
	return nil
}
