// Package cache keeps entailment answers between classifications.
//
// Placing a complement node into the taxonomy asks the base reasoner two
// subsumption questions per comparison, and repeated DisjointClasses queries
// against the same hierarchy ask the same questions again. Answers stay
// valid until the next classification, which calls Clear.
//
// Usage:
//
//	cache := NewEntailmentCache(10000, 0)
//
//	if ok, hit := cache.Get(st); hit {
//		return ok
//	}
//	ok, err := r.IsEntailed(ctx, st)
//	if err == nil {
//		cache.Put(st, ok)
//	}
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThomasFarrenkopf/pellet/pkg/axiom"
)

// EntailmentCache is a bounded LRU of entailment answers keyed by the
// canonical text of a statement. A cache built with a non-positive size
// stores nothing and reports every lookup as a miss.
type EntailmentCache struct {
	mu      sync.Mutex
	size    int
	ttl     time.Duration
	order   *list.List // front is most recently used
	answers map[string]*list.Element

	now func() time.Time

	hits   atomic.Uint64
	misses atomic.Uint64
}

type answer struct {
	statement string
	entailed  bool
	expires   time.Time // zero when ttl is 0
}

// NewEntailmentCache creates a cache holding at most size answers, each
// living for ttl (0 keeps answers until evicted or cleared).
func NewEntailmentCache(size int, ttl time.Duration) *EntailmentCache {
	return &EntailmentCache{
		size:    size,
		ttl:     ttl,
		order:   list.New(),
		answers: make(map[string]*list.Element),
		now:     time.Now,
	}
}

// Get returns the cached answer for st and whether there was one.
func (c *EntailmentCache) Get(st axiom.Statement) (entailed, hit bool) {
	key := st.String()

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.answers[key]
	if !ok {
		c.misses.Add(1)
		return false, false
	}
	a := elem.Value.(*answer)
	if !a.expires.IsZero() && c.now().After(a.expires) {
		c.drop(elem)
		c.misses.Add(1)
		return false, false
	}
	c.order.MoveToFront(elem)
	c.hits.Add(1)
	return a.entailed, true
}

// Put records the answer for st, evicting the least recently used answer
// when full.
func (c *EntailmentCache) Put(st axiom.Statement, entailed bool) {
	if c.size <= 0 {
		return
	}
	key := st.String()

	c.mu.Lock()
	defer c.mu.Unlock()

	var expires time.Time
	if c.ttl > 0 {
		expires = c.now().Add(c.ttl)
	}
	if elem, ok := c.answers[key]; ok {
		a := elem.Value.(*answer)
		a.entailed = entailed
		a.expires = expires
		c.order.MoveToFront(elem)
		return
	}
	for c.order.Len() >= c.size {
		c.drop(c.order.Back())
	}
	c.answers[key] = c.order.PushFront(&answer{statement: key, entailed: entailed, expires: expires})
}

// Clear forgets every answer. Hit and miss counts are kept.
func (c *EntailmentCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	clear(c.answers)
}

// Len returns the number of cached answers.
func (c *EntailmentCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats is a point-in-time view of the cache counters.
type Stats struct {
	Size   int
	Hits   uint64
	Misses uint64
}

// HitRate is the share of lookups answered from the cache, in [0, 1].
func (s Stats) HitRate() float64 {
	if total := s.Hits + s.Misses; total > 0 {
		return float64(s.Hits) / float64(total)
	}
	return 0
}

// Stats returns the current counters.
func (c *EntailmentCache) Stats() Stats {
	return Stats{
		Size:   c.Len(),
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}

// drop unlinks elem. Caller holds mu.
func (c *EntailmentCache) drop(elem *list.Element) {
	c.order.Remove(elem)
	delete(c.answers, elem.Value.(*answer).statement)
}
