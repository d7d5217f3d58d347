package checklist

import (
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultStatsCacheSize = 1024

// StatsCache memoizes ComputeStats by checklist ID and version. A checklist
// version is immutable, so entries never need invalidation.
type StatsCache struct {
	entries *lru.Cache[string, Stats]
}

// NewStatsCache creates a cache holding up to size rollups.
func NewStatsCache(size int) (*StatsCache, error) {
	if size <= 0 {
		size = defaultStatsCacheSize
	}
	entries, err := lru.New[string, Stats](size)
	if err != nil {
		return nil, err
	}
	return &StatsCache{entries: entries}, nil
}

// Get returns the rollup for cl, computing it on a miss.
func (c *StatsCache) Get(cl *ProjectChecklist) Stats {
	if c == nil {
		return ComputeStats(cl)
	}
	key := cl.ID + "@" + strconv.FormatInt(cl.Version, 10)
	if stats, ok := c.entries.Get(key); ok {
		return copyStats(stats)
	}
	stats := ComputeStats(cl)
	c.entries.Add(key, stats)
	return copyStats(stats)
}

// Len reports the number of cached rollups.
func (c *StatsCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}

func copyStats(s Stats) Stats {
	s.PerPhase = append([]PhaseStats(nil), s.PerPhase...)
	return s
}
