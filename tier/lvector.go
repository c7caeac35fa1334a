package tier

import (
	"math"
	"sort"
	"sync"
)

// VectorEntry is an embedding plus its payload, stored in the long-term tier.
type VectorEntry struct {
	Vector  []float64
	Payload any
}

// SearchResult is one similarity hit, highest score first.
type SearchResult struct {
	Key     string
	Score   float64
	Payload any
}

// LVector is the long-term tier: a namespaced key-value store that can also
// hold vector entries and answer cosine top-k queries over them. FIFO capacity
// eviction, no TTL.
type LVector struct {
	mu       sync.Mutex
	capacity int
	store    fifoStore
}

// NewLVector creates a long-term store. capacity <= 0 means unbounded.
func NewLVector(capacity int) *LVector {
	return &LVector{capacity: capacity, store: newFIFOStore()}
}

func (l *LVector) Get(key string) (any, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.store.get(key)
	if !ok {
		return nil, false
	}
	return e.value, true
}

func (l *LVector) Put(key string, value any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.putLocked(key, value)
	return nil
}

// PutVector stores an embedding with its payload so the entry participates in
// Search.
func (l *LVector) PutVector(key string, vector []float64, payload any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.putLocked(key, VectorEntry{Vector: vector, Payload: payload})
	return nil
}

func (l *LVector) putLocked(key string, value any) {
	if e, ok := l.store.get(key); ok {
		e.value = value
		return
	}
	if l.capacity > 0 {
		for l.store.len() >= l.capacity {
			l.store.evictOldest()
		}
	}
	l.store.insert(key, &entry{value: value})
}

func (l *LVector) Delete(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.store.remove(key)
}

func (l *LVector) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.len()
}

// Search returns the top-k stored vector entries by cosine similarity to
// query, ties broken by insertion order. Entries that are not vector entries,
// or whose dimension differs from the query, are ignored.
func (l *LVector) Search(query []float64, k int) []SearchResult {
	if k <= 0 || len(query) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var results []SearchResult
	for _, key := range l.store.order {
		e, ok := l.store.get(key)
		if !ok {
			continue
		}
		ve, ok := e.value.(VectorEntry)
		if !ok || len(ve.Vector) != len(query) {
			continue
		}
		results = append(results, SearchResult{
			Key:     key,
			Score:   cosineSimilarity(query, ve.Vector),
			Payload: ve.Payload,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}

func cosineSimilarity(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
