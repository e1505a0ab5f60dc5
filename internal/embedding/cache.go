package embedding

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// Cached memoises another embedder's vectors by exact text for a TTL.
// Failures are never cached.
type Cached struct {
	next  Embedder
	cache *cache.Cache
}

// NewCached wraps next with a TTL cache. ttl <= 0 means 30 minutes.
func NewCached(next Embedder, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Cached{
		next:  next,
		cache: cache.New(ttl, ttl/3),
	}
}

func (c *Cached) Embed(ctx context.Context, text string) (Vector, error) {
	if v, ok := c.cache.Get(text); ok {
		return clone(v.(Vector)), nil
	}
	v, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, clone(v), cache.DefaultExpiration)
	return v, nil
}

func (c *Cached) Dims() int { return c.next.Dims() }

// Len reports the number of cached vectors.
func (c *Cached) Len() int { return c.cache.ItemCount() }

func clone(v Vector) Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}
