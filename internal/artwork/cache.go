// Package artwork resolves cover references to image bytes through a
// memory tier, a disk tier, and a single-flight fetch from the remote
// source.
package artwork

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/mmcdole/crate/internal/domain"
)

// Result is delivered once on a Lookup's Pending channel.
type Result struct {
	Key  string
	Data []byte
	Err  error
}

// Lookup is the immediate answer to Get. Exactly one of Data and Pending
// is set: Data on a cache hit, Pending while a fetch is outstanding.
type Lookup struct {
	Key     string
	Data    []byte
	Pending <-chan Result
}

// Ready reports whether the lookup was served from cache.
func (l Lookup) Ready() bool { return l.Pending == nil }

// Options configures a Cache.
type Options struct {
	// Dir holds one file per cache key. Empty disables the disk tier.
	Dir string
	// MemoryTTL expires memory entries. Zero keeps them until cleared.
	MemoryTTL time.Duration
	// CleanupInterval purges expired memory entries. Zero disables purging.
	CleanupInterval time.Duration
	// FetchTimeout bounds a single fetch. Zero means no timeout.
	FetchTimeout time.Duration
}

// Stats counts cache activity since construction.
type Stats struct {
	MemoryHits int64
	DiskHits   int64
	Fetches    int64
	Failures   int64
}

type flight struct {
	cancel context.CancelFunc
}

// Cache is the two-tier artwork cache. It is safe for concurrent use.
type Cache struct {
	fetcher domain.CoverFetcher
	memory  *gocache.Cache
	disk    *diskTier
	opts    Options
	logger  *slog.Logger

	group singleflight.Group

	mu       sync.Mutex
	inflight map[string]*flight
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	memoryHits atomic.Int64
	diskHits   atomic.Int64
	fetches    atomic.Int64
	failures   atomic.Int64
}

// New creates a cache that fetches misses through fetcher.
func New(fetcher domain.CoverFetcher, opts Options, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ttl := opts.MemoryTTL
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	cleanup := opts.CleanupInterval
	if cleanup < 0 {
		cleanup = 0
	}

	disk, err := newDiskTier(opts.Dir)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		fetcher:  fetcher,
		memory:   gocache.New(ttl, cleanup),
		disk:     disk,
		opts:     opts,
		logger:   logger,
		inflight: make(map[string]*flight),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Get returns cached bytes for coverRef, or a Pending channel joined to the
// single outstanding fetch for its key. It never blocks on the network.
func (c *Cache) Get(coverRef string) (Lookup, error) {
	key := domain.CacheKey(coverRef)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Lookup{}, domain.ErrCacheClosed
	}
	c.wg.Add(1)
	c.mu.Unlock()

	if data, ok := c.cached(key); ok {
		c.wg.Done()
		return Lookup{Key: key, Data: data}, nil
	}

	shared := c.group.DoChan(key, func() (any, error) {
		return c.fetch(key, coverRef)
	})

	// Each waiter owns its channel so no receiver can starve another.
	out := make(chan Result, 1)
	go func() {
		defer c.wg.Done()
		res := <-shared
		if res.Err != nil {
			out <- Result{Key: key, Err: res.Err}
			return
		}
		out <- Result{Key: key, Data: cloneBytes(res.Val.([]byte))}
	}()

	return Lookup{Key: key, Pending: out}, nil
}

// Wait blocks until the cover for coverRef is available or ctx is done.
func (c *Cache) Wait(ctx context.Context, coverRef string) ([]byte, error) {
	lookup, err := c.Get(coverRef)
	if err != nil {
		return nil, err
	}
	if lookup.Ready() {
		return lookup.Data, nil
	}
	select {
	case res := <-lookup.Pending:
		return res.Data, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel abandons the in-flight fetch for coverRef's key, if any. Current
// waiters receive a fetch failure; the next Get starts a fresh fetch.
// A flight that has not yet reached the fetcher is not registered, so a
// Cancel racing its start is a no-op and that fetch runs to completion.
func (c *Cache) Cancel(coverRef string) {
	key := domain.CacheKey(coverRef)

	c.mu.Lock()
	f, ok := c.inflight[key]
	if ok {
		delete(c.inflight, key)
	}
	c.mu.Unlock()

	if !ok {
		return
	}
	c.group.Forget(key)
	f.cancel()
	c.logger.Debug("cancelled cover fetch", "key", key)
}

// ClearMemory drops every memory entry. Disk entries are untouched.
func (c *Cache) ClearMemory() {
	c.memory.Flush()
	c.logger.Debug("cleared artwork memory tier")
}

// Stats returns a snapshot of the activity counters.
func (c *Cache) Stats() Stats {
	return Stats{
		MemoryHits: c.memoryHits.Load(),
		DiskHits:   c.diskHits.Load(),
		Fetches:    c.fetches.Load(),
		Failures:   c.failures.Load(),
	}
}

// Close rejects new lookups, cancels outstanding fetches and waits until
// every pending waiter has been delivered.
func (c *Cache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	return nil
}

func (c *Cache) cached(key string) ([]byte, bool) {
	if v, ok := c.memory.Get(key); ok {
		c.memoryHits.Add(1)
		return cloneBytes(v.([]byte)), true
	}

	data, ok, err := c.disk.read(key)
	if err != nil {
		c.logger.Warn("failed to read cover from disk", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	c.diskHits.Add(1)
	c.memory.SetDefault(key, data)
	return cloneBytes(data), true
}

// fetch runs once per flight. A caller that joined after the previous
// flight finished finds the bytes here instead of fetching again.
func (c *Cache) fetch(key, coverRef string) ([]byte, error) {
	if data, ok := c.cached(key); ok {
		return data, nil
	}

	var ctx context.Context
	var cancel context.CancelFunc
	if c.opts.FetchTimeout > 0 {
		ctx, cancel = context.WithTimeout(c.ctx, c.opts.FetchTimeout)
	} else {
		ctx, cancel = context.WithCancel(c.ctx)
	}
	f := &flight{cancel: cancel}

	c.mu.Lock()
	c.inflight[key] = f
	c.mu.Unlock()

	defer func() {
		cancel()
		c.mu.Lock()
		if c.inflight[key] == f {
			delete(c.inflight, key)
		}
		c.mu.Unlock()
	}()

	c.fetches.Add(1)
	start := time.Now()
	data, err := c.fetcher.Fetch(ctx, coverRef)
	return c.complete(ctx, key, coverRef, data, err, time.Since(start))
}

// complete stores a successful fetch in disk then memory, or converts the
// failure into the error every waiter of this flight receives.
func (c *Cache) complete(ctx context.Context, key, coverRef string, data []byte, err error, took time.Duration) ([]byte, error) {
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err == nil {
		if _, verr := Describe(data); verr != nil {
			err = fmt.Errorf("not an image: %w", verr)
		}
	}
	if err != nil {
		c.failures.Add(1)
		c.logger.Warn("cover fetch failed", "key", key, "ref", coverRef, "error", err, "took", took)
		return nil, &domain.FetchError{Key: key, Ref: coverRef, Err: err}
	}

	data = cloneBytes(data)
	if werr := c.disk.write(key, data); werr != nil {
		// Memory still gets the bytes; the next cold start refetches.
		c.logger.Error("failed to write cover to disk", "key", key, "error", werr)
	}
	c.memory.SetDefault(key, data)

	c.logger.Debug("cover fetched", "key", key, "bytes", len(data), "took", took)
	return data, nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
