package allometry

import (
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Cache memoizes biomass lookups keyed by species, coordinates and the exact diameter
// sequence. It is safe for concurrent use; concurrent misses on the same key collapse
// into a single computation.
type Cache struct {
	mu      sync.RWMutex
	entries map[string][]float64
	group   singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string][]float64)}
}

// Do returns the cached result for key, calling compute on a miss. Returned slices are
// copies.
func (c *Cache) Do(key string, compute func() []float64) []float64 {
	c.mu.RLock()
	v, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return clone(v)
	}

	res, _, _ := c.group.Do(key, func() (interface{}, error) {
		c.mu.RLock()
		v, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			c.hits.Add(1)
			return v, nil
		}
		c.misses.Add(1)
		v = compute()
		c.mu.Lock()
		c.entries[key] = v
		c.mu.Unlock()
		return v, nil
	})
	return clone(res.([]float64))
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Hits returns the number of lookups answered from the cache.
func (c *Cache) Hits() int64 { return c.hits.Load() }

// Misses returns the number of lookups that required a computation.
func (c *Cache) Misses() int64 { return c.misses.Load() }

// Reset drops every entry and zeroes the counters.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = make(map[string][]float64)
	c.mu.Unlock()
	c.hits.Store(0)
	c.misses.Store(0)
}

// cacheKey encodes the lookup inputs. Diameters are keyed on their bit patterns so
// distinct values never collide after formatting.
func cacheKey(species string, coords Coordinates, dbh []float64) string {
	var b strings.Builder
	b.Grow(len(species) + 40 + len(dbh)*17)
	b.WriteString(species)
	b.WriteByte('_')
	b.WriteString(strconv.FormatFloat(coords.Latitude, 'g', -1, 64))
	b.WriteByte('_')
	b.WriteString(strconv.FormatFloat(coords.Longitude, 'g', -1, 64))
	for _, d := range dbh {
		b.WriteByte('|')
		b.WriteString(strconv.FormatUint(math.Float64bits(d), 16))
	}
	return b.String()
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
