package ephem

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/litescript/ls-carto/internal/astro"
)

// RequestCache memoizes provider lookups for a single instant. It lives for
// one projection request; concurrent lookups of the same body share one
// provider call.
type RequestCache struct {
	provider Provider
	instant  time.Time
	group    singleflight.Group

	mu      sync.Mutex
	entries map[string]cacheEntry
	hits    int
	misses  int
}

type cacheEntry struct {
	pos astro.BodyPosition
	err error
}

// NewRequestCache creates a cache bound to a provider and an instant.
func NewRequestCache(p Provider, instant time.Time) *RequestCache {
	return &RequestCache{
		provider: p,
		instant:  instant,
		entries:  make(map[string]cacheEntry),
	}
}

// Instant returns the instant every lookup is made for.
func (c *RequestCache) Instant() time.Time {
	return c.instant
}

// Position returns the body's position, consulting the provider at most once
// per body. Provider errors are cached; context errors are not.
//
// The South Node is derived from the North Node when the provider cannot
// supply it directly.
func (c *RequestCache) Position(ctx context.Context, body string) (astro.BodyPosition, error) {
	name := CanonicalName(body)

	c.mu.Lock()
	if e, ok := c.entries[name]; ok {
		c.hits++
		c.mu.Unlock()
		return e.pos, e.err
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(name, func() (any, error) {
		c.mu.Lock()
		if e, ok := c.entries[name]; ok {
			c.hits++
			c.mu.Unlock()
			return e.pos, e.err
		}
		c.misses++
		c.mu.Unlock()

		pos, err := c.lookup(ctx, name)
		if ctx.Err() == nil || !errors.Is(err, ctx.Err()) {
			c.mu.Lock()
			c.entries[name] = cacheEntry{pos: pos, err: err}
			c.mu.Unlock()
		}
		return pos, err
	})
	pos, _ := v.(astro.BodyPosition)
	return pos, err
}

func (c *RequestCache) lookup(ctx context.Context, name string) (astro.BodyPosition, error) {
	if name == SouthNode && !c.provider.Available(SouthNode) && c.provider.Available(NorthNode) {
		north, err := c.Position(ctx, NorthNode)
		if err != nil {
			return astro.BodyPosition{}, &BodyUnavailableError{Body: SouthNode, Provider: c.provider.Name(), Err: err}
		}
		return DeriveSouthNode(north), nil
	}
	return c.provider.BodyPosition(ctx, name, c.instant)
}

// Stats returns cache hit and miss counts.
func (c *RequestCache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// DeriveSouthNode returns the point diametrically opposite the North Node.
func DeriveSouthNode(north astro.BodyPosition) astro.BodyPosition {
	south := astro.BodyPosition{
		Body:           SouthNode,
		RAdeg:          astro.Normalize360(north.RAdeg + 180),
		DecDeg:         -north.DecDeg,
		DistanceAU:     north.DistanceAU,
		SpeedDegPerDay: north.SpeedDegPerDay,
	}
	if north.EclipticLonDeg != 0 {
		south.EclipticLonDeg = astro.Normalize360(north.EclipticLonDeg + 180)
	}
	return south
}
