package tier

import "sync"

// ColdStore is the archival tier: unbounded by default, FIFO capacity
// eviction only when a capacity is configured, no TTL.
type ColdStore struct {
	mu       sync.Mutex
	capacity int
	store    fifoStore
}

// NewColdStore creates a cold store. capacity <= 0 means unlimited.
func NewColdStore(capacity int) *ColdStore {
	return &ColdStore{capacity: capacity, store: newFIFOStore()}
}

func (c *ColdStore) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.store.get(key)
	if !ok {
		return nil, false
	}
	return e.value, true
}

func (c *ColdStore) Put(key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.store.get(key); ok {
		e.value = value
		return nil
	}
	if c.capacity > 0 {
		for c.store.len() >= c.capacity {
			c.store.evictOldest()
		}
	}
	c.store.insert(key, &entry{value: value})
	return nil
}

func (c *ColdStore) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.remove(key)
}

func (c *ColdStore) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.len()
}
