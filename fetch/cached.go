package fetch

import (
	"context"
	"image"

	"golang.org/x/sync/singleflight"

	"github.com/gogpu/atlas/cache"
)

// Cached wraps a Fetcher with an LRU of decoded images.
//
// Concurrent fetches of the same url share one call to the underlying
// Fetcher. Errors are not cached. A caller whose ctx is canceled returns
// early; the shared fetch keeps running for the other waiters.
type Cached struct {
	next  Fetcher
	cache *cache.ShardedCache[string, image.Image]
	group singleflight.Group
}

// NewCached returns a Cached holding up to about capacity images.
// capacity <= 0 uses cache.DefaultCapacity.
func NewCached(next Fetcher, capacity int) *Cached {
	return &Cached{
		next:  next,
		cache: cache.NewSharded[string, image.Image](capacity, cache.StringHasher),
	}
}

// Fetch returns the cached image for url or loads it.
func (c *Cached) Fetch(ctx context.Context, url string) (image.Image, error) {
	if img, ok := c.cache.Get(url); ok {
		return img, nil
	}

	ch := c.group.DoChan(url, func() (any, error) {
		// The shared call outlives any single caller's cancellation.
		img, err := c.next.Fetch(context.WithoutCancel(ctx), url)
		if err != nil {
			return nil, err
		}
		c.cache.Set(url, img)
		return img, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			Logger().Debug("fetch: shared in-flight request", "url", url)
		}
		return res.Val.(image.Image), nil
	}
}

// Forget drops url from the cache so the next Fetch reloads it.
func (c *Cached) Forget(url string) {
	c.cache.Delete(url)
	c.group.Forget(url)
}

// Stats returns cache statistics.
func (c *Cached) Stats() cache.Stats {
	return c.cache.Stats()
}

var _ Fetcher = (*Cached)(nil)
