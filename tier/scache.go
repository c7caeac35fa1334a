package tier

import (
	"sync"
	"time"
)

// SCache is the session-tier store. It keys full conversation histories by
// session id, with a default TTL, an optional per-key TTL override and FIFO
// capacity eviction. Expiry is lazy: it is checked on Get and opportunistically
// swept on Put.
type SCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	clock    Clock
	store    fifoStore
}

// NewSCache creates a session cache. capacity <= 0 means unbounded;
// ttl <= 0 means entries never expire.
func NewSCache(capacity int, ttl time.Duration) *SCache {
	return &SCache{
		capacity: capacity,
		ttl:      ttl,
		clock:    time.Now,
		store:    newFIFOStore(),
	}
}

// WithClock replaces the cache's time source. For tests.
func (s *SCache) WithClock(clock Clock) *SCache {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
	return s
}

func (s *SCache) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.store.get(key)
	if !ok {
		return nil, false
	}
	if e.expired(s.clock()) {
		s.store.remove(key)
		return nil, false
	}
	return e.value, true
}

func (s *SCache) Put(key string, value any) error {
	return s.PutWithTTL(key, value, s.ttl)
}

// PutWithTTL stores value with a per-key TTL override. An existing key keeps
// its insertion position; its value and timestamp are refreshed.
func (s *SCache) PutWithTTL(key string, value any, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	s.store.removeExpired(now)

	if e, ok := s.store.get(key); ok {
		e.value = value
		e.ts = now
		e.ttl = ttl
		return nil
	}

	if s.capacity > 0 {
		for s.store.len() >= s.capacity {
			s.store.evictOldest()
		}
	}
	s.store.insert(key, &entry{value: value, ts: now, ttl: ttl})
	return nil
}

func (s *SCache) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.remove(key)
}

func (s *SCache) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.len()
}

// EvictExpired removes every expired entry. The lifecycle sweeper calls this
// so long-running processes stay memory-bounded under low read volume.
func (s *SCache) EvictExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.store.removeExpired(s.clock()))
}

// Sessions returns every live key in insertion order.
func (s *SCache) Sessions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	keys := make([]string, 0, len(s.store.order))
	for _, key := range s.store.order {
		if e, ok := s.store.get(key); ok && !e.expired(now) {
			keys = append(keys, key)
		}
	}
	return keys
}
