package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestCache_ConcreteScenario covers the within-TTL half of the worked
// example: put("Hello World", R, ttl=2s) then get("hello  world") within 2s
// returns R, with puts==1, hits==1 and no misses yet. The expiry half is
// covered by TestCache_ExpiresAfterTTL.
func TestCache_ConcreteScenario(t *testing.T) {
	c := New(10, time.Hour)

	c.Put("Hello World", "R", 2*time.Second)

	got, ok := c.Get("hello  world")
	assert.True(t, ok)
	assert.Equal(t, "R", got)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Puts)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(0), stats.Misses)
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	c := New(10, time.Hour)

	c.Put("query", "R", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("query")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Evictions)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2, time.Hour)

	c.Put("a", 1, 0)
	c.Put("b", 2, 0)

	_, _ = c.Get("a")

	c.Put("c", 3, 0)

	_, ok := c.Get("b")
	assert.False(t, ok)

	_, ok = c.Get("a")
	assert.True(t, ok)

	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestCache_MissDoesNotPanicOnEmptyCache(t *testing.T) {
	c := New(10, time.Hour)

	_, ok := c.Get("nothing")
	assert.False(t, ok)
}

func TestNormalizeKey_CaseAndWhitespaceInsensitive(t *testing.T) {
	assert.Equal(t, NormalizeKey("  Hello   World "), NormalizeKey("hello world"))
}
