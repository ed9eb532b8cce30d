package undo

import (
	"testing"

	"github.com/mmcdole/crate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(title string) domain.Record {
	return domain.Record{Title: title, Artist: "A", Genre: "G", CoverRef: "c", Year: "1"}
}

func TestStack_LIFO(t *testing.T) {
	s := NewStack(0)
	s.RecordDeletion(rec("a"), 0)
	s.RecordDeletion(rec("b"), 3)

	require.True(t, s.CanUndo())

	e, err := s.Undo()
	require.NoError(t, err)
	assert.Equal(t, "b", e.Record.Title)
	assert.Equal(t, 3, e.Index)

	e, err = s.Undo()
	require.NoError(t, err)
	assert.Equal(t, "a", e.Record.Title)

	assert.False(t, s.CanUndo())
}

func TestStack_UndoEmpty(t *testing.T) {
	s := NewStack(0)
	_, err := s.Undo()
	assert.ErrorIs(t, err, domain.ErrNothingToUndo)
}

func TestStack_LimitDropsOldest(t *testing.T) {
	s := NewStack(2)
	s.RecordDeletion(rec("a"), 0)
	s.RecordDeletion(rec("b"), 0)
	s.RecordDeletion(rec("c"), 0)

	require.Equal(t, 2, s.Len())
	entries := s.Entries()
	assert.Equal(t, "b", entries[0].Record.Title)
	assert.Equal(t, "c", entries[1].Record.Title)
}

func TestStack_Restore(t *testing.T) {
	s := NewStack(2)
	s.Restore([]domain.UndoEntry{
		{Record: rec("a"), Index: 0},
		{Record: rec("b"), Index: 1},
		{Record: rec("c"), Index: 2},
	})

	require.Equal(t, 2, s.Len())
	e, err := s.Undo()
	require.NoError(t, err)
	assert.Equal(t, "c", e.Record.Title)
}
