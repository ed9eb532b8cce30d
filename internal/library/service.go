package library

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmcdole/crate/internal/artwork"
	"github.com/mmcdole/crate/internal/catalog"
	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/undo"
)

// Covers resolves cover references to artwork.
type Covers interface {
	Get(coverRef string) (artwork.Lookup, error)
	Cancel(coverRef string)
	Close() error
}

// sessionState is persisted under domain.KeyState so selection and undo
// history survive between processes.
type sessionState struct {
	Selection int                `json:"selection"`
	Undo      []domain.UndoEntry `json:"undo"`
}

const noSelection = -1

var errNoCovers = fmt.Errorf("%w: no cover cache configured", domain.ErrCacheClosed)

// Service is the library facade. Every catalog mutation and the persist
// that follows it happen under one lock.
type Service struct {
	mu        sync.Mutex
	catalog   *catalog.Store
	history   *undo.Stack
	covers    Covers
	state     domain.BlobStore
	selection int
	logger    *slog.Logger
}

// NewService composes a loaded catalog with its undo history and cover
// cache. When state is non-nil, the previous session's selection and undo
// history are restored from it and kept up to date after each mutation.
func NewService(
	cat *catalog.Store,
	history *undo.Stack,
	covers Covers,
	state domain.BlobStore,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if history == nil {
		history = undo.NewStack(0)
	}

	s := &Service{
		catalog:   cat,
		history:   history,
		covers:    covers,
		state:     state,
		selection: noSelection,
		logger:    logger,
	}
	s.restoreState()
	if s.selection == noSelection && cat.Len() > 0 {
		s.selection = 0
	}
	return s
}

// Records returns the catalog in display order.
func (s *Service) Records() []domain.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.List()
}

func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Len()
}

// Record returns the record at index.
func (s *Service) Record(index int) (domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.At(index)
}

// AddRecord validates and inserts record at index (clamped), selects it,
// persists, and returns the new catalog length.
func (s *Service) AddRecord(record domain.Record, index int) (int, error) {
	if err := record.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pos := s.catalog.Insert(record, index)
	s.selection = pos
	s.logger.Info("added record", "title", record.Title, "artist", record.Artist, "index", pos)

	return s.catalog.Len(), s.persistLocked()
}

// DeleteRecord removes the record at index and remembers it for undo.
func (s *Service) DeleteRecord(index int) (domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.catalog.RemoveAt(index)
	if err != nil {
		return domain.Record{}, err
	}
	s.history.RecordDeletion(removed, index)
	s.clampSelectionLocked()
	s.abandonCoverLocked(removed)

	s.logger.Info("deleted record", "title", removed.Title, "index", index)
	return removed, s.persistLocked()
}

// UndoLastDelete re-inserts the most recently deleted record at the index
// it occupied and selects it.
func (s *Service) UndoLastDelete() (domain.Record, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.history.Undo()
	if err != nil {
		return domain.Record{}, 0, err
	}
	pos := s.catalog.Insert(entry.Record, entry.Index)
	s.selection = pos

	s.logger.Info("restored record", "title", entry.Record.Title, "index", pos)
	return entry.Record, pos, s.persistLocked()
}

func (s *Service) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

// CoverImage resolves the record at index and asks the cover cache for its
// artwork. The lookup is either ready or pending.
func (s *Service) CoverImage(index int) (artwork.Lookup, error) {
	s.mu.Lock()
	record, err := s.catalog.At(index)
	s.mu.Unlock()
	if err != nil {
		return artwork.Lookup{}, err
	}
	if s.covers == nil {
		return artwork.Lookup{}, errNoCovers
	}
	return s.covers.Get(record.CoverRef)
}

// CurrentSelection returns the selected index; false when the catalog is
// empty.
func (s *Service) CurrentSelection() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection == noSelection {
		return 0, false
	}
	return s.selection, true
}

// SetSelection clamps index into the catalog and returns the index used,
// or -1 when the catalog is empty.
func (s *Service) SetSelection(index int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selection = index
	s.clampSelectionLocked()
	s.saveStateLocked()
	return s.selection
}

// ResetSession drops the undo history and selects the first record. Used
// when the catalog the saved session referred to has been replaced.
func (s *Service) ResetSession() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history.Restore(nil)
	s.selection = noSelection
	s.clampSelectionLocked()
	s.saveStateLocked()
	s.logger.Info("reset session state")
}

// Close releases the cover cache.
func (s *Service) Close() error {
	if s.covers == nil {
		return nil
	}
	return s.covers.Close()
}

func (s *Service) clampSelectionLocked() {
	n := s.catalog.Len()
	switch {
	case n == 0:
		s.selection = noSelection
	case s.selection < 0:
		s.selection = 0
	case s.selection >= n:
		s.selection = n - 1
	}
}

// abandonCoverLocked cancels the fetch for a deleted record's cover unless
// another record still shows the same artwork.
func (s *Service) abandonCoverLocked(removed domain.Record) {
	if s.covers == nil {
		return
	}
	key := removed.CacheKey()
	for _, r := range s.catalog.List() {
		if r.CacheKey() == key {
			return
		}
	}
	s.covers.Cancel(removed.CoverRef)
}

// persistLocked writes the catalog, then the session state. The in-memory
// mutation stands even when the write fails.
func (s *Service) persistLocked() error {
	if err := s.catalog.Persist(); err != nil {
		s.logger.Error("failed to persist catalog", "error", err)
		return err
	}
	s.saveStateLocked()
	return nil
}

func (s *Service) saveStateLocked() {
	if s.state == nil {
		return
	}
	data, err := json.Marshal(sessionState{
		Selection: s.selection,
		Undo:      s.history.Entries(),
	})
	if err != nil {
		s.logger.Error("failed to encode session state", "error", err)
		return
	}
	if err := s.state.Write(domain.KeyState, data); err != nil {
		s.logger.Error("failed to save session state", "error", err)
	}
}

func (s *Service) restoreState() {
	if s.state == nil {
		return
	}
	data, ok, err := s.state.Read(domain.KeyState)
	if err != nil {
		s.logger.Warn("failed to read session state", "error", err)
		return
	}
	if !ok {
		return
	}

	var st sessionState
	if err := json.Unmarshal(data, &st); err != nil {
		s.logger.Warn("ignoring unreadable session state", "error", fmt.Errorf("decode state: %w", err))
		return
	}

	if err := validateHistory(st.Undo); err != nil {
		s.logger.Warn("discarding invalid undo history", "error", err)
		st.Undo = nil
	}

	s.history.Restore(st.Undo)
	s.selection = st.Selection
	s.clampSelectionLocked()
	s.logger.Debug("restored session state", "selection", s.selection, "undo", s.history.Len())
}

// validateHistory rejects undo entries that could not have come from a
// deletion: invalid records or negative indexes.
func validateHistory(entries []domain.UndoEntry) error {
	for i, e := range entries {
		if err := e.Record.Validate(); err != nil {
			return fmt.Errorf("undo entry %d: %w", i, err)
		}
		if e.Index < 0 {
			return fmt.Errorf("undo entry %d: %w", i, domain.NewIndexError(e.Index, 0))
		}
	}
	return nil
}
