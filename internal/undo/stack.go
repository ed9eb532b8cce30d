// Package undo keeps the LIFO history of deleted records.
package undo

import (
	"slices"

	"github.com/mmcdole/crate/internal/domain"
)

// Stack is a bounded LIFO of deletions. Not safe for concurrent use.
type Stack struct {
	entries []domain.UndoEntry
	limit   int
}

// NewStack creates a stack holding at most limit entries. When full, the
// oldest entry is dropped. A limit of 0 or less means unbounded.
func NewStack(limit int) *Stack {
	if limit < 0 {
		limit = 0
	}
	return &Stack{limit: limit}
}

// RecordDeletion pushes a removed record and the index it occupied.
func (s *Stack) RecordDeletion(record domain.Record, index int) {
	s.entries = append(s.entries, domain.UndoEntry{Record: record, Index: index})
	if s.limit > 0 && len(s.entries) > s.limit {
		s.entries = slices.Delete(s.entries, 0, len(s.entries)-s.limit)
	}
}

// Undo pops the most recent deletion.
func (s *Stack) Undo() (domain.UndoEntry, error) {
	if len(s.entries) == 0 {
		return domain.UndoEntry{}, domain.ErrNothingToUndo
	}
	last := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	return last, nil
}

func (s *Stack) CanUndo() bool { return len(s.entries) > 0 }

func (s *Stack) Len() int { return len(s.entries) }

// Entries returns the history oldest first.
func (s *Stack) Entries() []domain.UndoEntry {
	return slices.Clone(s.entries)
}

// Restore replaces the history, keeping only the newest entries that fit.
func (s *Stack) Restore(entries []domain.UndoEntry) {
	if s.limit > 0 && len(entries) > s.limit {
		entries = entries[len(entries)-s.limit:]
	}
	s.entries = slices.Clone(entries)
}
