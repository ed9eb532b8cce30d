package catalog

import (
	"errors"
	"testing"

	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memBlobs(t *testing.T) *store.BoltStore {
	t.Helper()
	s, err := store.NewBoltStore("")
	require.NoError(t, err)
	return s
}

func rec(title string) domain.Record {
	return domain.Record{Title: title, Artist: "A", Genre: "G", CoverRef: "http://x/" + title + ".png", Year: "2001"}
}

func titles(records []domain.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Title
	}
	return out
}

func TestLoad_SeedsWhenEmpty(t *testing.T) {
	blobs := memBlobs(t)
	s := NewStore(blobs, JSON, nil)

	require.NoError(t, s.Load())
	require.Equal(t, 5, s.Len())

	first, err := s.At(0)
	require.NoError(t, err)
	assert.Equal(t, "Best of Bowie", first.Title)
	assert.Equal(t, "David Bowie", first.Artist)

	_, ok, err := blobs.Read(domain.KeyCatalog)
	require.NoError(t, err)
	assert.True(t, ok, "seed should be persisted")
}

func TestPersist_RoundTrip(t *testing.T) {
	for _, codec := range []Codec{JSON, YAML} {
		t.Run(codec.Ext(), func(t *testing.T) {
			blobs := memBlobs(t)
			s := NewStore(blobs, codec, nil)
			s.Insert(rec("one"), 0)
			s.Insert(rec("two"), 1)
			require.NoError(t, s.Persist())

			loaded := NewStore(blobs, codec, nil)
			require.NoError(t, loaded.Load())
			assert.Equal(t, s.List(), loaded.List())
		})
	}
}

func TestPersist_EmptyCatalogStaysEmpty(t *testing.T) {
	blobs := memBlobs(t)
	s := NewStore(blobs, JSON, nil)
	require.NoError(t, s.Persist())

	loaded := NewStore(blobs, JSON, nil)
	require.NoError(t, loaded.Load())
	assert.Equal(t, 0, loaded.Len(), "an explicitly emptied catalog must not reseed")
}

func TestLoad_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"garbage", "not json at all"},
		{"wrong version", `{"version":9,"records":[]}`},
		{"invalid record", `{"version":1,"records":[{"title":"x"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blobs := memBlobs(t)
			require.NoError(t, blobs.Write(domain.KeyCatalog, []byte(tt.data)))

			s := NewStore(blobs, JSON, nil)
			err := s.Load()
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrStorageCorrupt))
			assert.Equal(t, 0, s.Len())
		})
	}
}

func TestBackup(t *testing.T) {
	blobs := memBlobs(t)
	require.NoError(t, blobs.Write(domain.KeyCatalog, []byte("broken")))

	s := NewStore(blobs, JSON, nil)
	require.Error(t, s.Load())
	require.NoError(t, s.Backup("corrupt"))
	require.NoError(t, s.Seed())

	data, ok, err := blobs.Read("catalog.corrupt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "broken", string(data))
	assert.Equal(t, 5, s.Len())
}

func TestInsert_Clamps(t *testing.T) {
	s := NewStore(memBlobs(t), JSON, nil)
	assert.Equal(t, 0, s.Insert(rec("b"), 0))
	assert.Equal(t, 1, s.Insert(rec("d"), 99))
	assert.Equal(t, 0, s.Insert(rec("a"), -3))
	assert.Equal(t, 2, s.Insert(rec("c"), 2))

	assert.Equal(t, []string{"a", "b", "c", "d"}, titles(s.List()))
}

func TestRemoveAt(t *testing.T) {
	s := NewStore(memBlobs(t), JSON, nil)
	s.Insert(rec("a"), 0)
	s.Insert(rec("b"), 1)
	s.Insert(rec("c"), 2)

	removed, err := s.RemoveAt(1)
	require.NoError(t, err)
	assert.Equal(t, "b", removed.Title)
	assert.Equal(t, []string{"a", "c"}, titles(s.List()))

	_, err = s.RemoveAt(2)
	assert.ErrorIs(t, err, domain.ErrIndexOutOfRange)
	_, err = s.RemoveAt(-1)
	assert.ErrorIs(t, err, domain.ErrIndexOutOfRange)
}

func TestList_ReturnsCopy(t *testing.T) {
	s := NewStore(memBlobs(t), JSON, nil)
	s.Insert(rec("a"), 0)

	list := s.List()
	list[0].Title = "mutated"

	got, err := s.At(0)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Title)
}

func TestCodecFor(t *testing.T) {
	c, err := CodecFor("yaml")
	require.NoError(t, err)
	assert.Equal(t, ".yaml", c.Ext())

	c, err = CodecFor("")
	require.NoError(t, err)
	assert.Equal(t, ".json", c.Ext())

	_, err = CodecFor("toml")
	assert.Error(t, err)
}
