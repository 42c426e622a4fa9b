package content

import (
	"context"
	"fmt"
	"time"

	"github.com/maypok86/otter"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCacheCapacity = 1024
	defaultFetchTimeout  = 5 * time.Second
)

// CachedCatalog memoizes catalog reads for a fixed TTL. Concurrent misses for one
// key share a single store query. Returned slices are shared and must not be modified.
type CachedCatalog struct {
	next         Catalog
	cache        otter.Cache[string, []string]
	group        singleflight.Group
	fetchTimeout time.Duration
}

// CacheOption tunes a CachedCatalog.
type CacheOption func(*CachedCatalog)

// WithFetchTimeout bounds one shared store query. It applies instead of the
// caller's deadline because other callers may be waiting on the same query.
func WithFetchTimeout(d time.Duration) CacheOption {
	return func(c *CachedCatalog) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// NewCachedCatalog wraps next with a TTL cache holding up to capacity entries.
func NewCachedCatalog(next Catalog, capacity int, ttl time.Duration, opts ...CacheOption) (*CachedCatalog, error) {
	if next == nil {
		return nil, fmt.Errorf("content: nil catalog")
	}
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("content: cache ttl must be > 0")
	}
	c, err := otter.MustBuilder[string, []string](capacity).WithTTL(ttl).Build()
	if err != nil {
		return nil, fmt.Errorf("content: build cache with capacity %d: %w", capacity, err)
	}
	cc := &CachedCatalog{next: next, cache: c, fetchTimeout: defaultFetchTimeout}
	for _, opt := range opts {
		opt(cc)
	}
	return cc, nil
}

func (c *CachedCatalog) ListTopics(ctx context.Context) ([]string, error) {
	return c.load(ctx, "topics", c.next.ListTopics)
}

func (c *CachedCatalog) LinksForTopic(ctx context.Context, topic string) ([]string, error) {
	return c.load(ctx, "topic:"+topic, func(ctx context.Context) ([]string, error) {
		return c.next.LinksForTopic(ctx, topic)
	})
}

func (c *CachedCatalog) ListSingers(ctx context.Context) ([]string, error) {
	return c.load(ctx, "singers", c.next.ListSingers)
}

func (c *CachedCatalog) LinksForSinger(ctx context.Context, singer string) ([]string, error) {
	return c.load(ctx, "singer:"+singer, func(ctx context.Context) ([]string, error) {
		return c.next.LinksForSinger(ctx, singer)
	})
}

func (c *CachedCatalog) MemePool(ctx context.Context) ([]string, error) {
	return c.load(ctx, "pool:meme", c.next.MemePool)
}

func (c *CachedCatalog) MusicPool(ctx context.Context) ([]string, error) {
	return c.load(ctx, "pool:music", c.next.MusicPool)
}

// Invalidate drops every cached entry, e.g. after the catalog was reseeded.
func (c *CachedCatalog) Invalidate() {
	c.cache.Clear()
}

// Close stops the cache's background maintenance.
func (c *CachedCatalog) Close() {
	c.cache.Close()
}

func (c *CachedCatalog) load(ctx context.Context, key string, fetch func(context.Context) ([]string, error)) ([]string, error) {
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.cache.Get(key); ok {
			return v, nil
		}
		// Detached from the first caller so its cancellation does not fail the others.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		res, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		if res == nil {
			res = []string{}
		}
		c.cache.Set(key, res)
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}
