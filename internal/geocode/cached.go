package geocode

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/barbizo19/mapty/internal/domain"
)

// DefaultCacheSize bounds Cached when no positive size is given.
const DefaultCacheSize = 1024

// Resolver is satisfied by Client and by Cached itself.
type Resolver interface {
	ReverseGeocode(ctx context.Context, coords domain.Coordinates) (domain.Place, error)
}

// Cached memoises successful lookups per coordinate pair, evicting the least
// recently used pair once size entries are held. Failures are not cached so a
// later render can retry.
type Cached struct {
	next    Resolver
	entries *lru.Cache[domain.Coordinates, domain.Place]
}

// NewCached wraps next with a cache of at most size entries.
func NewCached(next Resolver, size int) *Cached {
	if size <= 0 {
		size = DefaultCacheSize
	}
	// lru.New only fails for a non-positive size.
	entries, _ := lru.New[domain.Coordinates, domain.Place](size)
	return &Cached{next: next, entries: entries}
}

// Len reports how many lookups are cached.
func (c *Cached) Len() int { return c.entries.Len() }

// ReverseGeocode implements Resolver.
func (c *Cached) ReverseGeocode(ctx context.Context, coords domain.Coordinates) (domain.Place, error) {
	if place, ok := c.entries.Get(coords); ok {
		return place, nil
	}
	place, err := c.next.ReverseGeocode(ctx, coords)
	if err != nil {
		return domain.Place{}, err
	}
	c.entries.Add(coords, place)
	return place, nil
}
