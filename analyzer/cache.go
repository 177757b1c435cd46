package analyzer

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

type cacheEntry struct {
	modTime  time.Time
	analysis FileAnalysis
}

// Cache maps file paths to the analysis computed for a specific modification time.
// Reads are lock-free. Entries are replaced when a newer analysis is stored and are
// never evicted.
type Cache struct {
	entries sync.Map // path -> cacheEntry
	size    atomic.Int64
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Get returns the cached analysis when its recorded modification time equals modTime.
func (c *Cache) Get(path string, modTime time.Time) (FileAnalysis, bool) {
	value, ok := c.entries.Load(path)
	if !ok {
		c.misses.Add(1)
		return FileAnalysis{}, false
	}
	entry := value.(cacheEntry)
	if !entry.modTime.Equal(modTime) {
		c.misses.Add(1)
		return FileAnalysis{}, false
	}
	c.hits.Add(1)
	return entry.analysis.clone(), true
}

// Put stores an analysis for path at modTime, replacing any previous entry.
func (c *Cache) Put(path string, modTime time.Time, analysis FileAnalysis) {
	if _, loaded := c.entries.Swap(path, cacheEntry{modTime: modTime, analysis: analysis.clone()}); !loaded {
		c.size.Add(1)
	}
}

// Len returns the number of cached paths.
func (c *Cache) Len() int {
	return int(c.size.Load())
}

// HitRate returns hits and misses since creation.
func (c *Cache) HitRate() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (a FileAnalysis) clone() FileAnalysis {
	a.Warnings = slices.Clone(a.Warnings)
	return a
}
