package tier

import (
	"errors"
	"time"
)

// Clock supplies the current time to a store. Injectable for deterministic
// expiry tests; defaults to time.Now.
type Clock func() time.Time

// Store is the contract every memory tier implements. A Get on an expired or
// evicted key reports absent; it is indistinguishable from a key that was
// never stored.
type Store interface {
	Get(key string) (any, bool)
	Put(key string, value any) error
	Delete(key string)
	Len() int
}

// ErrOversize is returned when a single value exceeds a bounded tier's token
// limit. The value is rejected outright, never partially stored.
var ErrOversize = errors.New("value exceeds tier token limit")

// entry is a stored value plus its bookkeeping. The timestamp refreshes on
// every put; ttl is resolved at put time (per-key override or store default).
type entry struct {
	value  any
	ts     time.Time
	ttl    time.Duration
	tokens int
}

func (e *entry) expired(now time.Time) bool {
	return e.ttl > 0 && !now.Before(e.ts.Add(e.ttl))
}

// fifoStore is the shared map+insertion-order core of every tier. Eviction is
// FIFO by insertion order, not LRU: reads never reorder entries, and updating
// an existing key keeps its original position. Callers hold the store lock.
type fifoStore struct {
	entries map[string]*entry
	order   []string
}

func newFIFOStore() fifoStore {
	return fifoStore{entries: make(map[string]*entry)}
}

func (f *fifoStore) get(key string) (*entry, bool) {
	e, ok := f.entries[key]
	return e, ok
}

func (f *fifoStore) insert(key string, e *entry) {
	if _, ok := f.entries[key]; !ok {
		f.order = append(f.order, key)
	}
	f.entries[key] = e
}

func (f *fifoStore) remove(key string) (*entry, bool) {
	e, ok := f.entries[key]
	if !ok {
		return nil, false
	}
	delete(f.entries, key)
	for i, k := range f.order {
		if k == key {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return e, true
}

// evictOldest removes and returns the oldest-inserted entry.
func (f *fifoStore) evictOldest() (string, *entry, bool) {
	if len(f.order) == 0 {
		return "", nil, false
	}
	key := f.order[0]
	f.order = f.order[1:]
	e := f.entries[key]
	delete(f.entries, key)
	return key, e, true
}

// removeExpired drops every expired entry and returns the removed entries.
func (f *fifoStore) removeExpired(now time.Time) []*entry {
	var removed []*entry
	kept := f.order[:0]
	for _, key := range f.order {
		e := f.entries[key]
		if e.expired(now) {
			delete(f.entries, key)
			removed = append(removed, e)
			continue
		}
		kept = append(kept, key)
	}
	f.order = kept
	return removed
}

func (f *fifoStore) len() int {
	return len(f.entries)
}
