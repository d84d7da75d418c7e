package storage

import (
	"sync"
	"time"

	"github.com/felixgeelhaar/leadline/pkg/domain/engagement"
)

// QueryCache holds the last fetched status events per customer.
//
// Every key carries a generation. A fetch records the generation it started
// under and its result is dropped if the key was invalidated in between, so a
// response that raced a mutation never overwrites fresher state.
type QueryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	generation uint64
	events     []engagement.StatusEvent
	fetchedAt  time.Time
	filled     bool
}

// NewQueryCache creates a cache. A zero ttl keeps entries until invalidated.
func NewQueryCache(ttl time.Duration) *QueryCache {
	return &QueryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*cacheEntry),
	}
}

// Get returns a copy of the cached events if present and fresh.
func (c *QueryCache) Get(customerID string) ([]engagement.StatusEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[customerID]
	if !ok || !e.filled {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(e.fetchedAt) > c.ttl {
		return nil, false
	}
	out := make([]engagement.StatusEvent, len(e.events))
	copy(out, e.events)
	return out, true
}

// Begin marks the start of a fetch and returns the generation to hand back
// to Put.
func (c *QueryCache) Begin(customerID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entry(customerID).generation
}

// Put stores events fetched under generation. It returns false and stores
// nothing when the key was invalidated after Begin.
func (c *QueryCache) Put(customerID string, generation uint64, events []engagement.StatusEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entry(customerID)
	if e.generation != generation {
		return false
	}
	e.events = make([]engagement.StatusEvent, len(events))
	copy(e.events, events)
	e.fetchedAt = c.now()
	e.filled = true
	return true
}

// Invalidate drops the cached events and bumps the key's generation.
func (c *QueryCache) Invalidate(customerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entry(customerID)
	e.generation++
	e.events = nil
	e.filled = false
}

// Len returns the number of customers with cached events.
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.entries {
		if e.filled {
			n++
		}
	}
	return n
}

func (c *QueryCache) entry(customerID string) *cacheEntry {
	e, ok := c.entries[customerID]
	if !ok {
		e = &cacheEntry{}
		c.entries[customerID] = e
	}
	return e
}
