package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

var (
	errEmptyQuery = errors.New("empty query")
	errNoProvider = errors.New("no search provider configured")
)

// Cached memoizes successful searches for a TTL and collapses concurrent
// identical queries into one upstream call. Error results are not cached.
type Cached struct {
	next  Provider
	cache *expirable.LRU[string, []Result]
	group singleflight.Group
}

func NewCached(next Provider, size int, ttl time.Duration) *Cached {
	if size <= 0 {
		size = 256
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Cached{next: next, cache: expirable.NewLRU[string, []Result](size, nil, ttl)}
}

func (c *Cached) Search(ctx context.Context, query string, max int) []Result {
	key := fmt.Sprintf("%d|%s", clampMax(max), strings.ToLower(strings.TrimSpace(query)))
	if res, ok := c.cache.Get(key); ok {
		return clone(res)
	}
	// Detached from the caller: the first caller's ctx would otherwise
	// decide the outcome for every waiter.
	v, _, _ := c.group.Do(key, func() (any, error) {
		res := c.next.Search(context.WithoutCancel(ctx), query, max)
		if _, failed := Failed(res); !failed {
			c.cache.Add(key, res)
		}
		return res, nil
	})
	return clone(v.([]Result))
}

// Len reports the number of cached queries.
func (c *Cached) Len() int { return c.cache.Len() }

func clone(in []Result) []Result {
	return append([]Result(nil), in...)
}
