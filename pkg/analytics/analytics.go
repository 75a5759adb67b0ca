// Package analytics maintains in-memory search usage counters: total
// searches, unique queries, per-query counts, a rolling average execution
// time, a top-K most-frequent list, and an hourly query-volume histogram.
package analytics

import (
	"sort"
	"sync"
	"time"

	"github.com/larsson/sokmotor/pkg/cache"
)

// DefaultTopK is the default size of the most-frequent-queries list.
const DefaultTopK = 5

const hoursPerDay = 24

// QueryCount pairs a normalized query with its observed frequency.
type QueryCount struct {
	Query string
	Count int
}

// Snapshot is a point-in-time view of the counters.
type Snapshot struct {
	TotalSearches    int64
	UniqueQueries    int
	AvgExecutionTime time.Duration
	TopQueries       []QueryCount
	HourlyBuckets    [hoursPerDay]int64
}

// Counter accumulates search analytics. It is safe for concurrent use.
type Counter struct {
	counts     map[string]int
	topK       int
	mu         sync.Mutex
	total      int64
	totalExec  time.Duration
	hourly     [hoursPerDay]int64
}

// New creates a Counter reporting the topK most frequent queries (DefaultTopK
// if topK <= 0).
func New(topK int) *Counter {
	if topK <= 0 {
		topK = DefaultTopK
	}

	return &Counter{counts: make(map[string]int), topK: topK}
}

// Record registers one completed search for query, taking execTime and the
// hour-of-day it occurred (0-23; supplied by the caller rather than
// time.Now so results stay reproducible in tests).
func (c *Counter) Record(query string, execTime time.Duration, hour int) {
	key := cache.NormalizeKey(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.total++
	c.counts[key]++
	c.totalExec += execTime

	if hour >= 0 && hour < hoursPerDay {
		c.hourly[hour]++
	}
}

// Snapshot returns a consistent point-in-time view of all counters.
func (c *Counter) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	avg := time.Duration(0)
	if c.total > 0 {
		avg = c.totalExec / time.Duration(c.total)
	}

	top := make([]QueryCount, 0, len(c.counts))
	for q, n := range c.counts {
		top = append(top, QueryCount{Query: q, Count: n})
	}

	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}

		return top[i].Query < top[j].Query
	})

	if len(top) > c.topK {
		top = top[:c.topK]
	}

	return Snapshot{
		TotalSearches:    c.total,
		UniqueQueries:    len(c.counts),
		AvgExecutionTime: avg,
		TopQueries:       top,
		HourlyBuckets:    c.hourly,
	}
}
