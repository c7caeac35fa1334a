package tier

import (
	"fmt"
	"sync"
	"time"

	"github.com/nexxia-ai/tiermem/utils"
)

// MBuffer is the short-term buffer tier. It holds recent message text keyed
// by ordinal position and is bounded by both message count and total token
// budget. A single value larger than the token budget is rejected with
// ErrOversize before any state changes.
type MBuffer struct {
	mu          sync.Mutex
	maxMessages int
	maxTokens   int
	ttl         time.Duration
	clock       Clock
	curTokens   int
	store       fifoStore
}

// NewMBuffer creates a short-term buffer. maxMessages <= 0 disables the count
// bound, maxTokens <= 0 disables the token bound, ttl <= 0 disables expiry.
func NewMBuffer(maxMessages, maxTokens int, ttl time.Duration) *MBuffer {
	return &MBuffer{
		maxMessages: maxMessages,
		maxTokens:   maxTokens,
		ttl:         ttl,
		clock:       time.Now,
		store:       newFIFOStore(),
	}
}

// WithClock replaces the buffer's time source. For tests.
func (m *MBuffer) WithClock(clock Clock) *MBuffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = clock
	return m
}

func (m *MBuffer) Get(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.store.get(key)
	if !ok {
		return nil, false
	}
	if e.expired(m.clock()) {
		m.store.remove(key)
		m.curTokens -= e.tokens
		return nil, false
	}
	return e.value, true
}

func (m *MBuffer) Put(key string, value any) error {
	text := asText(value)
	tokens := utils.CountTokens(text)
	if m.maxTokens > 0 && tokens > m.maxTokens {
		return fmt.Errorf("%w: key %q is %d tokens, limit %d", ErrOversize, key, tokens, m.maxTokens)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.expireLocked()

	if e, ok := m.store.get(key); ok {
		m.curTokens += tokens - e.tokens
		e.value = value
		e.tokens = tokens
		e.ts = m.clock()
		e.ttl = m.ttl
		m.evictForUpdateLocked(key)
		return nil
	}

	if m.maxMessages > 0 {
		for m.store.len() >= m.maxMessages {
			m.evictOldestLocked()
		}
	}
	m.evictForBoundsLocked(tokens)

	m.store.insert(key, &entry{value: value, ts: m.clock(), ttl: m.ttl, tokens: tokens})
	m.curTokens += tokens
	return nil
}

func (m *MBuffer) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.store.remove(key); ok {
		m.curTokens -= e.tokens
	}
}

func (m *MBuffer) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.len()
}

// TokenCount returns the aggregate token count of all buffered values.
func (m *MBuffer) TokenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.curTokens
}

// Values returns the buffered texts in insertion order.
func (m *MBuffer) Values() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	values := make([]string, 0, len(m.store.order))
	for _, key := range m.store.order {
		if e, ok := m.store.get(key); ok && !e.expired(now) {
			values = append(values, asText(e.value))
		}
	}
	return values
}

// EvictExpired removes every expired entry.
func (m *MBuffer) EvictExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expireLocked()
}

func (m *MBuffer) expireLocked() int {
	removed := m.store.removeExpired(m.clock())
	for _, e := range removed {
		m.curTokens -= e.tokens
	}
	return len(removed)
}

// evictForBoundsLocked evicts oldest entries until incoming extra tokens fit.
func (m *MBuffer) evictForBoundsLocked(incoming int) {
	if m.maxTokens <= 0 {
		return
	}
	for m.curTokens+incoming > m.maxTokens {
		if _, _, ok := m.evictOldestLocked(); !ok {
			return
		}
	}
}

// evictForUpdateLocked restores the token bound after an in-place update.
// The updated entry itself is never evicted: a successful Put must leave its
// key readable.
func (m *MBuffer) evictForUpdateLocked(keep string) {
	if m.maxTokens <= 0 {
		return
	}
	for m.curTokens > m.maxTokens {
		evicted := false
		for _, key := range m.store.order {
			if key == keep {
				continue
			}
			if e, ok := m.store.remove(key); ok {
				m.curTokens -= e.tokens
				evicted = true
			}
			break
		}
		if !evicted {
			return
		}
	}
}

func (m *MBuffer) evictOldestLocked() (string, *entry, bool) {
	key, e, ok := m.store.evictOldest()
	if ok {
		m.curTokens -= e.tokens
	}
	return key, e, ok
}

func asText(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}
