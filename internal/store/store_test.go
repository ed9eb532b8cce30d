package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoltStore_ReadMissing(t *testing.T) {
	s, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	data, ok, err := s.Read("catalog")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, data)
}

func TestBoltStore_WriteReopenRead(t *testing.T) {
	dir := t.TempDir()

	s, err := NewBoltStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Write("catalog", []byte("first")))
	require.NoError(t, s.Write("catalog", []byte("second")))
	require.NoError(t, s.Close())

	reopened, err := NewBoltStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	data, ok, err := reopened.Read("catalog")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", string(data))
}

func TestBoltStore_ReadReturnsCopy(t *testing.T) {
	s, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Write("k", []byte("abc")))

	data, _, err := s.Read("k")
	require.NoError(t, err)
	data[0] = 'z'

	again, _, err := s.Read("k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestBoltStore_MemoryOnly(t *testing.T) {
	s, err := NewBoltStore("")
	require.NoError(t, err)

	require.NoError(t, s.Write("state", []byte(`{"selection":1}`)))
	data, ok, err := s.Read("state")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"selection":1}`, string(data))
	assert.NoError(t, s.Close())
}

func TestFileStore_AtomicOverwrite(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, ".json")
	require.NoError(t, err)

	require.NoError(t, s.Write("catalog", []byte(`{"v":1}`)))
	require.NoError(t, s.Write("catalog", []byte(`{"v":2}`)))

	data, ok, err := s.Read("catalog")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"v":2}`, string(data))
	assert.Equal(t, filepath.Join(dir, "catalog.json"), s.Path("catalog"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "temp file left behind: %s", e.Name())
	}
	assert.Len(t, entries, 1)
}

func TestFileStore_ReadMissing(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), "")
	require.NoError(t, err)

	_, ok, err := s.Read("nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpen(t *testing.T) {
	tests := []struct {
		backend string
		wantErr bool
	}{
		{"", false},
		{"bolt", false},
		{"file", false},
		{"sqlite", true},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			s, err := Open(tt.backend, t.TempDir(), ".json")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, s.Close())
		})
	}
}
