package analysis

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/dgraph-io/ristretto/v2"
)

// CachedAnalyzer wraps another analyzer with a ristretto cache keyed by FEN
// and depth. Errors are not cached.
type CachedAnalyzer struct {
	inner Analyzer
	*cacheStore
	owner bool
}

// cacheStore is shared by a CachedAnalyzer and the views made with Share.
type cacheStore struct {
	cache *ristretto.Cache[string, []Line]

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCachedAnalyzer creates a cache holding up to maxEntries results.
func NewCachedAnalyzer(inner Analyzer, maxEntries int64) (*CachedAnalyzer, error) {
	if maxEntries <= 0 {
		maxEntries = 10000
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, []Line]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &CachedAnalyzer{inner: inner, cacheStore: &cacheStore{cache: cache}, owner: true}, nil
}

// Share returns an analyzer that answers from the same cache and sends
// misses to inner. Closing it closes inner but leaves the cache open.
func (ca *CachedAnalyzer) Share(inner Analyzer) *CachedAnalyzer {
	return &CachedAnalyzer{inner: inner, cacheStore: ca.cacheStore}
}

func cacheKey(req Request) string {
	return strconv.Itoa(req.Depth) + "|" + req.FEN
}

// Analyze implements Analyzer.
func (ca *CachedAnalyzer) Analyze(ctx context.Context, req Request) ([]Line, error) {
	key := cacheKey(req)
	if lines, ok := ca.cache.Get(key); ok {
		ca.hits.Add(1)
		return lines, nil
	}
	ca.misses.Add(1)

	lines, err := ca.inner.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}

	ca.cache.Set(key, lines, 1)
	return lines, nil
}

// Wait blocks until pending cache writes are visible.
func (ca *CachedAnalyzer) Wait() {
	ca.cache.Wait()
}

// HitRate returns the cache hit rate as a percentage.
func (ca *CachedAnalyzer) HitRate() float64 {
	hits, misses := ca.hits.Load(), ca.misses.Load()
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// Clear drops every cached entry.
func (ca *CachedAnalyzer) Clear() {
	ca.cache.Clear()
	ca.hits.Store(0)
	ca.misses.Store(0)
}

// Close releases the cache, unless ca came from Share, and closes the inner
// analyzer when it can be closed.
func (ca *CachedAnalyzer) Close() error {
	if ca.owner {
		ca.cache.Close()
	}
	if c, ok := ca.inner.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
