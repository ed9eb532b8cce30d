// Package catalog holds the ordered album sequence and its persistence
// round-trip. Store is not safe for concurrent use; the library service
// serializes access to it.
package catalog

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/mmcdole/crate/internal/domain"
)

// Store is the in-memory ordered catalog backed by one blob.
type Store struct {
	blobs   domain.BlobStore
	codec   Codec
	logger  *slog.Logger
	records []domain.Record
}

// NewStore creates an empty catalog. Call Load to restore persisted records.
func NewStore(blobs domain.BlobStore, codec Codec, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if codec == nil {
		codec = JSON
	}
	return &Store{blobs: blobs, codec: codec, logger: logger}
}

// Load restores the catalog. With no stored blob it seeds the placeholder
// albums and persists them. Undecodable bytes return an error matching
// domain.ErrStorageCorrupt and leave the catalog empty.
func (s *Store) Load() error {
	data, ok, err := s.blobs.Read(domain.KeyCatalog)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	if !ok {
		s.logger.Info("no stored catalog, seeding placeholders")
		return s.Seed()
	}

	records, err := decodeRecords(s.codec, data)
	if err != nil {
		s.records = nil
		s.logger.Error("stored catalog is corrupt", "error", err, "bytes", len(data))
		return err
	}

	s.records = records
	s.logger.Debug("loaded catalog", "count", len(records))
	return nil
}

// Seed replaces the catalog with the placeholder albums and persists them.
func (s *Store) Seed() error {
	s.records = Placeholders()
	return s.Persist()
}

// Backup copies the raw stored catalog to "catalog.<suffix>". A missing
// catalog is not an error.
func (s *Store) Backup(suffix string) error {
	data, ok, err := s.blobs.Read(domain.KeyCatalog)
	if err != nil || !ok {
		return err
	}
	key := domain.KeyCatalog + "." + suffix
	if err := s.blobs.Write(key, data); err != nil {
		return fmt.Errorf("backup catalog: %w", err)
	}
	s.logger.Info("backed up stored catalog", "key", key, "bytes", len(data))
	return nil
}

// List returns a copy of the ordered records.
func (s *Store) List() []domain.Record {
	return slices.Clone(s.records)
}

func (s *Store) Len() int { return len(s.records) }

// At returns the record at index.
func (s *Store) At(index int) (domain.Record, error) {
	if index < 0 || index >= len(s.records) {
		return domain.Record{}, domain.NewIndexError(index, len(s.records))
	}
	return s.records[index], nil
}

// Insert places record at index. An index at or past the end appends; a
// negative index inserts at the front. Returns the position used.
func (s *Store) Insert(record domain.Record, index int) int {
	switch {
	case index >= len(s.records):
		index = len(s.records)
	case index < 0:
		index = 0
	}
	s.records = slices.Insert(s.records, index, record)
	return index
}

// RemoveAt deletes and returns the record at index.
func (s *Store) RemoveAt(index int) (domain.Record, error) {
	r, err := s.At(index)
	if err != nil {
		return domain.Record{}, err
	}
	s.records = slices.Delete(s.records, index, index+1)
	return r, nil
}

// Persist writes the full sequence, atomically replacing the stored blob.
func (s *Store) Persist() error {
	data, err := encodeRecords(s.codec, s.records)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := s.blobs.Write(domain.KeyCatalog, data); err != nil {
		return fmt.Errorf("persist catalog: %w", err)
	}
	s.logger.Debug("persisted catalog", "count", len(s.records))
	return nil
}
