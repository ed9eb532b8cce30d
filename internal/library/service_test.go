package library

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/mmcdole/crate/internal/artwork"
	"github.com/mmcdole/crate/internal/catalog"
	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/store"
	"github.com/mmcdole/crate/internal/undo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(title, cover string) domain.Record {
	return domain.Record{Title: title, Artist: "Artist " + title, Genre: "Rock", CoverRef: cover, Year: "1999"}
}

func titles(records []domain.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Title
	}
	return out
}

// stubCovers records cancellations and never resolves.
type stubCovers struct {
	mu        sync.Mutex
	cancelled []string
}

func (c *stubCovers) Get(ref string) (artwork.Lookup, error) {
	return artwork.Lookup{Key: domain.CacheKey(ref), Pending: make(chan artwork.Result)}, nil
}

func (c *stubCovers) Cancel(ref string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled = append(c.cancelled, ref)
}

func (c *stubCovers) Close() error { return nil }

type fixture struct {
	svc    *Service
	blobs  *store.BoltStore
	covers *stubCovers
}

// newFixture builds a service over [A, B, C].
func newFixture(t *testing.T) fixture {
	t.Helper()
	blobs, err := store.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { blobs.Close() })

	cat := catalog.NewStore(blobs, catalog.JSON, nil)
	cat.Insert(rec("A", "http://img/a.png"), 0)
	cat.Insert(rec("B", "http://img/b.png"), 1)
	cat.Insert(rec("C", "http://img/c.png"), 2)
	require.NoError(t, cat.Persist())

	covers := &stubCovers{}
	svc := NewService(cat, undo.NewStack(0), covers, blobs, nil)
	return fixture{svc: svc, blobs: blobs, covers: covers}
}

func TestDeleteThenUndo(t *testing.T) {
	f := newFixture(t)

	removed, err := f.svc.DeleteRecord(1)
	require.NoError(t, err)
	assert.Equal(t, "B", removed.Title)
	assert.Equal(t, []string{"A", "C"}, titles(f.svc.Records()))
	assert.True(t, f.svc.CanUndo())

	restored, idx, err := f.svc.UndoLastDelete()
	require.NoError(t, err)
	assert.Equal(t, "B", restored.Title)
	assert.Equal(t, 1, idx)
	assert.Equal(t, []string{"A", "B", "C"}, titles(f.svc.Records()))
	assert.False(t, f.svc.CanUndo())

	sel, ok := f.svc.CurrentSelection()
	require.True(t, ok)
	assert.Equal(t, 1, sel)
}

func TestDeleteThenUndo_EveryIndex(t *testing.T) {
	for i := range 3 {
		f := newFixture(t)
		before := f.svc.Records()

		_, err := f.svc.DeleteRecord(i)
		require.NoError(t, err)
		_, _, err = f.svc.UndoLastDelete()
		require.NoError(t, err)

		assert.Equal(t, before, f.svc.Records(), "index %d", i)
	}
}

func TestDeleteRecord_OutOfRange(t *testing.T) {
	f := newFixture(t)
	before := f.svc.Records()

	for _, idx := range []int{-1, 3, 100} {
		_, err := f.svc.DeleteRecord(idx)
		assert.ErrorIs(t, err, domain.ErrIndexOutOfRange)
	}
	assert.Equal(t, before, f.svc.Records())
	assert.False(t, f.svc.CanUndo())
}

func TestUndo_Empty(t *testing.T) {
	f := newFixture(t)
	before := f.svc.Records()

	_, _, err := f.svc.UndoLastDelete()
	assert.ErrorIs(t, err, domain.ErrNothingToUndo)
	assert.Equal(t, before, f.svc.Records())
}

func TestAddRecord(t *testing.T) {
	f := newFixture(t)

	n, err := f.svc.AddRecord(rec("D", "http://img/d.png"), 99)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []string{"A", "B", "C", "D"}, titles(f.svc.Records()))

	sel, ok := f.svc.CurrentSelection()
	require.True(t, ok)
	assert.Equal(t, 3, sel)

	_, err = f.svc.AddRecord(domain.Record{Title: "no artist"}, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidRecord)
	assert.Equal(t, 4, f.svc.Len())
}

func TestMutationsPersist(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.DeleteRecord(0)
	require.NoError(t, err)
	_, err = f.svc.AddRecord(rec("Z", "http://img/z.png"), 0)
	require.NoError(t, err)

	reloaded := catalog.NewStore(f.blobs, catalog.JSON, nil)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, f.svc.Records(), reloaded.List())
}

func TestSessionStateSurvivesReopen(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.DeleteRecord(2)
	require.NoError(t, err)
	f.svc.SetSelection(0)

	cat := catalog.NewStore(f.blobs, catalog.JSON, nil)
	require.NoError(t, cat.Load())
	reopened := NewService(cat, undo.NewStack(0), f.covers, f.blobs, nil)

	sel, ok := reopened.CurrentSelection()
	require.True(t, ok)
	assert.Equal(t, 0, sel)
	require.True(t, reopened.CanUndo())

	restored, idx, err := reopened.UndoLastDelete()
	require.NoError(t, err)
	assert.Equal(t, "C", restored.Title)
	assert.Equal(t, 2, idx)
}

func TestInvalidUndoHistoryIsDiscarded(t *testing.T) {
	tests := []struct {
		name  string
		state string
	}{
		{"empty title", `{"selection":1,"undo":[{"record":{"title":"","artist":"x"},"index":0}]}`},
		{"negative index", `{"selection":1,"undo":[{"record":{"title":"T","artist":"A","genre":"G","cover_url":"c.png","year":"1999"},"index":-3}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			require.NoError(t, f.blobs.Write(domain.KeyState, []byte(tt.state)))

			cat := catalog.NewStore(f.blobs, catalog.JSON, nil)
			require.NoError(t, cat.Load())
			svc := NewService(cat, undo.NewStack(0), f.covers, f.blobs, nil)

			assert.False(t, svc.CanUndo())
			_, _, err := svc.UndoLastDelete()
			assert.ErrorIs(t, err, domain.ErrNothingToUndo)

			sel, ok := svc.CurrentSelection()
			require.True(t, ok)
			assert.Equal(t, 1, sel)

			// The catalog on disk is untouched and still loads.
			reloaded := catalog.NewStore(f.blobs, catalog.JSON, nil)
			require.NoError(t, reloaded.Load())
			assert.Equal(t, []string{"A", "B", "C"}, titles(reloaded.List()))
		})
	}
}

func TestResetSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.DeleteRecord(2)
	require.NoError(t, err)
	f.svc.SetSelection(1)

	f.svc.ResetSession()
	assert.False(t, f.svc.CanUndo())
	sel, ok := f.svc.CurrentSelection()
	require.True(t, ok)
	assert.Equal(t, 0, sel)

	cat := catalog.NewStore(f.blobs, catalog.JSON, nil)
	require.NoError(t, cat.Load())
	reopened := NewService(cat, undo.NewStack(0), f.covers, f.blobs, nil)
	assert.False(t, reopened.CanUndo())
}

func TestCoverImage_NoCovers(t *testing.T) {
	f := newFixture(t)
	cat := catalog.NewStore(f.blobs, catalog.JSON, nil)
	require.NoError(t, cat.Load())
	svc := NewService(cat, nil, nil, nil, nil)

	_, err := svc.CoverImage(0)
	assert.ErrorIs(t, err, domain.ErrCacheClosed)
}

func TestSelection_Clamps(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, 2, f.svc.SetSelection(10))
	assert.Equal(t, 0, f.svc.SetSelection(-4))

	_, err := f.svc.DeleteRecord(0)
	require.NoError(t, err)
	_, err = f.svc.DeleteRecord(0)
	require.NoError(t, err)
	_, err = f.svc.DeleteRecord(0)
	require.NoError(t, err)

	_, ok := f.svc.CurrentSelection()
	assert.False(t, ok)
	assert.Equal(t, -1, f.svc.SetSelection(0))
}

func TestDeleteRecord_CancelsUnsharedCover(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AddRecord(rec("A2", "http://mirror/a.png"), 1)
	require.NoError(t, err)

	// a.png is still shown by the other record.
	_, err = f.svc.DeleteRecord(0)
	require.NoError(t, err)
	assert.Empty(t, f.covers.cancelled)

	_, err = f.svc.DeleteRecord(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://mirror/a.png"}, f.covers.cancelled)
}

func TestCoverImage_FetchesOnce(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))))
	img := buf.Bytes()

	var calls atomic.Int32
	release := make(chan struct{})
	fetcher := domain.CoverFetcherFunc(func(ctx context.Context, ref string) ([]byte, error) {
		calls.Add(1)
		<-release
		return img, nil
	})

	covers, err := artwork.New(fetcher, artwork.Options{Dir: t.TempDir()}, nil)
	require.NoError(t, err)

	blobs, err := store.NewBoltStore("")
	require.NoError(t, err)
	cat := catalog.NewStore(blobs, catalog.JSON, nil)
	cat.Insert(rec("A", "http://img/shared.png"), 0)
	cat.Insert(rec("B", "http://other/shared.png"), 1)

	svc := NewService(cat, nil, covers, nil, nil)
	defer svc.Close()

	const n = 8
	lookups := make([]artwork.Lookup, 0, n)
	for i := range n {
		l, err := svc.CoverImage(i % 2)
		require.NoError(t, err)
		require.False(t, l.Ready())
		lookups = append(lookups, l)
	}
	close(release)

	for _, l := range lookups {
		select {
		case res := <-l.Pending:
			require.NoError(t, res.Err)
			assert.Equal(t, img, res.Data)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for cover")
		}
	}
	assert.Equal(t, int32(1), calls.Load())

	l, err := svc.CoverImage(0)
	require.NoError(t, err)
	assert.True(t, l.Ready())
	assert.Equal(t, img, l.Data)
	assert.Equal(t, int32(1), calls.Load())

	_, err = svc.CoverImage(5)
	assert.ErrorIs(t, err, domain.ErrIndexOutOfRange)
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AddRecord(domain.Record{
		Title: "Best of Bowie", Artist: "David Bowie", Genre: "Pop", CoverRef: "x.png", Year: "1992",
	}, 0)
	require.NoError(t, err)

	matches := f.svc.Search("bowie")
	require.NotEmpty(t, matches)
	assert.Equal(t, 0, matches[0].Index)
	assert.Equal(t, "David Bowie Best of Bowie", matches[0].Text)
	assert.NotEmpty(t, matches[0].MatchedIndexes)

	// Offsets index the original text even when lower-casing would change
	// a rune's byte length.
	_, err = f.svc.AddRecord(domain.Record{
		Title: "Band", Artist: "İzmir", Genre: "Rock", CoverRef: "i.png", Year: "2010",
	}, 0)
	require.NoError(t, err)
	matches = f.svc.Search("band")
	require.NotEmpty(t, matches)
	require.Equal(t, 0, matches[0].Index)
	var picked []rune
	for _, i := range matches[0].MatchedIndexes {
		r, _ := utf8.DecodeRuneInString(matches[0].Text[i:])
		picked = append(picked, r)
	}
	assert.Equal(t, "Band", string(picked))

	assert.Nil(t, f.svc.Search("   "))
	assert.Empty(t, f.svc.Search("zzzzqqq"))
}

func TestFilterGenre(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AddRecord(domain.Record{
		Title: "X", Artist: "Y", Genre: "Électro Pop", CoverRef: "x.png", Year: "2001",
	}, 99)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2}, f.svc.FilterGenre("rock"))
	assert.Equal(t, []int{3}, f.svc.FilterGenre("electro"))
	assert.Len(t, f.svc.FilterGenre(""), 4)
}
