package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mmcdole/crate/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketBlobs = []byte("blobs")
)

// BoltStore implements domain.BlobStore using BoltDB.
// Every Write is a single bolt transaction, so overwrites are atomic.
type BoltStore struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory copy of blobs, promoted on read
	cache map[string][]byte
}

var _ domain.BlobStore = (*BoltStore)(nil)

func NewBoltStore(dir string) (*BoltStore, error) {
	if dir == "" {
		// Memory-only mode (no persistence)
		return &BoltStore{cache: make(map[string][]byte)}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "crate.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketBlobs)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, cache: make(map[string][]byte)}, nil
}

func (s *BoltStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *BoltStore) Read(key string) ([]byte, bool, error) {
	// Check memory cache first
	s.mu.RLock()
	if data, ok := s.cache[key]; ok {
		s.mu.RUnlock()
		return cloneBytes(data), true, nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return nil, false, nil
	}

	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBlobs)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			// bolt memory is only valid for the life of the transaction
			data = cloneBytes(v)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	if data == nil {
		return nil, false, nil
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[key] = data
	s.mu.Unlock()

	return cloneBytes(data), true, nil
}

func (s *BoltStore) Write(key string, data []byte) error {
	data = cloneBytes(data)

	if s.db != nil {
		err := s.db.Update(func(tx *bolt.Tx) error {
			b := tx.Bucket(bucketBlobs)
			return b.Put([]byte(key), data)
		})
		if err != nil {
			return fmt.Errorf("write %s: %w", key, err)
		}
	}

	// Memory is updated only after the durable write succeeded
	s.mu.Lock()
	s.cache[key] = data
	s.mu.Unlock()
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Open returns the blob store for backend: "bolt" (default) or "file".
// ext only applies to the file backend.
func Open(backend, dir, ext string) (domain.BlobStore, error) {
	switch backend {
	case "", "bolt":
		return NewBoltStore(dir)
	case "file":
		return NewFileStore(dir, ext)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", backend)
	}
}
