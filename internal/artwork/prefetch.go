package artwork

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/mmcdole/crate/internal/domain"
)

// PrefetchReport summarizes a Prefetch run.
type PrefetchReport struct {
	Keys   int
	Cached int
	Failed int
}

// Prefetch warms the cache for refs, running at most concurrency fetches
// at once. Refs sharing a key are fetched once. Individual failures are
// counted, not returned; the error is non-nil only when ctx ends first or
// the cache is closed.
func (c *Cache) Prefetch(ctx context.Context, refs []string, concurrency int) (PrefetchReport, error) {
	if concurrency <= 0 {
		concurrency = 1
	}

	seen := make(map[string]bool, len(refs))
	unique := make([]string, 0, len(refs))
	for _, ref := range refs {
		key := domain.CacheKey(ref)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, ref)
	}

	var cached, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, ref := range unique {
		g.Go(func() error {
			_, err := c.Wait(gctx, ref)
			switch {
			case err == nil:
				cached.Add(1)
				return nil
			case errors.Is(err, domain.ErrCacheClosed):
				return err
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				failed.Add(1)
				c.logger.Warn("prefetch failed", "ref", ref, "error", err)
				return nil
			}
		})
	}

	err := g.Wait()
	report := PrefetchReport{
		Keys:   len(unique),
		Cached: int(cached.Load()),
		Failed: int(failed.Load()),
	}
	c.logger.Info("prefetch finished", "keys", report.Keys, "cached", report.Cached, "failed", report.Failed)
	return report, err
}
