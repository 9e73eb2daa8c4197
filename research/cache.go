package research

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedSearcher remembers successful searches for ttl. Failures are not cached.
type CachedSearcher struct {
	next  Searcher
	cache *expirable.LRU[string, []Result]
}

func NewCachedSearcher(next Searcher, size int, ttl time.Duration) *CachedSearcher {
	if size <= 0 {
		size = 64
	}
	return &CachedSearcher{next: next, cache: expirable.NewLRU[string, []Result](size, nil, ttl)}
}

func (c *CachedSearcher) Search(ctx context.Context, query string) ([]Result, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	if hit, ok := c.cache.Get(key); ok {
		return slices.Clone(hit), nil
	}
	results, err := c.next.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, slices.Clone(results))
	return results, nil
}
