package artwork

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mmcdole/crate/internal/store"
)

// diskTier stores one file per cache key. A nil tier is a permanent miss.
type diskTier struct {
	dir string
}

func newDiskTier(dir string) (*diskTier, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cover cache directory: %w", err)
	}
	return &diskTier{dir: dir}, nil
}

func (d *diskTier) path(key string) string {
	return filepath.Join(d.dir, key)
}

func (d *diskTier) read(key string) ([]byte, bool, error) {
	if d == nil {
		return nil, false, nil
	}
	data, err := os.ReadFile(d.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (d *diskTier) write(key string, data []byte) error {
	if d == nil {
		return nil
	}
	return store.WriteFileAtomic(d.path(key), data)
}
