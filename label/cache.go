package label

import (
	"slices"
	"sync"
	"sync/atomic"
)

// DefaultCacheSize is the default soft limit of a Cache.
const DefaultCacheSize = 1024

// Cache memoises layouts by text for one set of options.
// When the soft limit is exceeded the least recently used quarter is evicted.
//
// Cache is safe for concurrent use.
type Cache struct {
	opts Options

	mu        sync.Mutex
	entries   map[string]*cacheEntry
	softLimit int
	tick      int64

	hits   atomic.Uint64
	misses atomic.Uint64
}

type cacheEntry struct {
	layout *Layout
	atime  int64
}

// NewCache creates a cache. A non-positive softLimit uses DefaultCacheSize.
func NewCache(opts Options, softLimit int) *Cache {
	if softLimit <= 0 {
		softLimit = DefaultCacheSize
	}
	return &Cache{
		opts:      opts.normalized(),
		entries:   make(map[string]*cacheEntry),
		softLimit: softLimit,
	}
}

// Options returns the options layouts are built with.
func (c *Cache) Options() Options { return c.opts }

// Layout returns the layout of text, building it on a miss.
// Layouts are built outside the lock; concurrent misses for the same text
// may both build, and the first stored result wins.
func (c *Cache) Layout(text string) *Layout {
	c.mu.Lock()
	if e, ok := c.entries[text]; ok {
		c.tick++
		e.atime = c.tick
		c.mu.Unlock()
		c.hits.Add(1)
		return e.layout
	}
	c.mu.Unlock()

	c.misses.Add(1)
	l := Build(text, c.opts)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick++
	if e, ok := c.entries[text]; ok {
		e.atime = c.tick
		return e.layout
	}
	c.entries[text] = &cacheEntry{layout: l, atime: c.tick}
	if len(c.entries) > c.softLimit {
		c.evictOldest()
	}
	return l
}

// Len returns the number of cached layouts.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns hit and miss counts.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// evictOldest trims the cache to three quarters of the soft limit.
// Caller must hold c.mu.
func (c *Cache) evictOldest() {
	target := max(c.softLimit*3/4, 1)
	n := len(c.entries) - target
	if n <= 0 {
		return
	}

	type aged struct {
		text  string
		atime int64
	}
	all := make([]aged, 0, len(c.entries))
	for text, e := range c.entries {
		all = append(all, aged{text, e.atime})
	}
	slices.SortFunc(all, func(a, b aged) int {
		switch {
		case a.atime < b.atime:
			return -1
		case a.atime > b.atime:
			return 1
		}
		return 0
	})
	for _, a := range all[:n] {
		delete(c.entries, a.text)
	}
}
