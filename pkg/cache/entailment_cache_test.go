package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ThomasFarrenkopf/pellet/pkg/axiom"
)

func sub(a, b string) axiom.Statement {
	return axiom.SubClass(axiom.Class(axiom.IRI(a)), axiom.Class(axiom.IRI(b)))
}

// =============================================================================
// Lookup Tests
// =============================================================================

func TestEntailmentCache_GetPut(t *testing.T) {
	c := NewEntailmentCache(10, 0)
	c.Put(sub("A", "B"), true)
	c.Put(sub("B", "A"), false)

	ok, hit := c.Get(sub("A", "B"))
	assert.True(t, hit)
	assert.True(t, ok)

	ok, hit = c.Get(sub("B", "A"))
	assert.True(t, hit)
	assert.False(t, ok, "negative answers are cached too")

	_, hit = c.Get(sub("A", "C"))
	assert.False(t, hit)

	c.Put(sub("B", "A"), true)
	ok, _ = c.Get(sub("B", "A"))
	assert.True(t, ok, "Put overwrites")
	assert.Equal(t, 2, c.Len())
}

func TestEntailmentCache_Disabled(t *testing.T) {
	for _, size := range []int{0, -1} {
		c := NewEntailmentCache(size, 0)
		c.Put(sub("A", "B"), true)
		_, hit := c.Get(sub("A", "B"))
		assert.False(t, hit)
		assert.Zero(t, c.Len())
	}
}

func TestEntailmentCache_TTL(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewEntailmentCache(10, time.Minute)
	c.now = func() time.Time { return now }

	c.Put(sub("A", "B"), true)
	now = now.Add(59 * time.Second)
	_, hit := c.Get(sub("A", "B"))
	assert.True(t, hit)

	now = now.Add(2 * time.Second)
	_, hit = c.Get(sub("A", "B"))
	assert.False(t, hit)
	assert.Zero(t, c.Len(), "expired answers are dropped on lookup")
}

// =============================================================================
// Eviction Tests
// =============================================================================

func TestEntailmentCache_Eviction(t *testing.T) {
	c := NewEntailmentCache(3, 0)
	c.Put(sub("A", "B"), true)
	c.Put(sub("B", "C"), true)
	c.Put(sub("C", "D"), true)

	c.Get(sub("A", "B"))
	c.Put(sub("D", "E"), true)

	assert.Equal(t, 3, c.Len())
	_, hit := c.Get(sub("A", "B"))
	assert.True(t, hit, "recently used answer kept")
	_, hit = c.Get(sub("B", "C"))
	assert.False(t, hit, "least recently used answer evicted")
}

func TestEntailmentCache_Clear(t *testing.T) {
	c := NewEntailmentCache(10, 0)
	c.Put(sub("A", "B"), true)
	c.Get(sub("A", "B"))
	c.Clear()

	assert.Zero(t, c.Len())
	_, hit := c.Get(sub("A", "B"))
	assert.False(t, hit)

	s := c.Stats()
	assert.Equal(t, uint64(1), s.Hits)
	assert.Equal(t, uint64(1), s.Misses)
	assert.InDelta(t, 0.5, s.HitRate(), 1e-9)
	assert.Zero(t, Stats{}.HitRate())
}

// =============================================================================
// Concurrency Tests
// =============================================================================

func TestEntailmentCache_Concurrent(t *testing.T) {
	c := NewEntailmentCache(50, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				st := sub(fmt.Sprintf("C%d", i), fmt.Sprintf("C%d", j%13))
				c.Put(st, j%2 == 0)
				c.Get(st)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50)
	s := c.Stats()
	assert.Equal(t, uint64(8*200), s.Hits+s.Misses)
}
