package tier

import (
	"log/slog"
	"sync"
	"time"
)

// LifecycleManager sweeps TTL-expired entries out of the session and
// short-term tiers and promotes values from the short-term buffer into the
// long-term store. The sweep is belt-and-braces on top of lazy per-get
// expiry: it keeps memory bounded when reads are rare.
type LifecycleManager struct {
	s *SCache
	m *MBuffer
	l *LVector

	mu   sync.Mutex
	done chan struct{}
	wg   sync.WaitGroup
}

func NewLifecycleManager(s *SCache, m *MBuffer, l *LVector) *LifecycleManager {
	return &LifecycleManager{s: s, m: m, l: l}
}

// Sweep removes expired entries from the S and M tiers and returns how many
// were dropped.
func (lm *LifecycleManager) Sweep() int {
	removed := 0
	if lm.s != nil {
		removed += lm.s.EvictExpired()
	}
	if lm.m != nil {
		removed += lm.m.EvictExpired()
	}
	return removed
}

// Promote copies a key's value from the short-term buffer to the long-term
// store. Promoting an absent key is a no-op, so repeated promotion is safe.
func (lm *LifecycleManager) Promote(key string) {
	if lm.m == nil || lm.l == nil {
		return
	}
	if value, ok := lm.m.Get(key); ok {
		lm.l.Put(key, value)
	}
}

// Start launches a background sweeper that runs every interval until Stop is
// called. Starting an already running manager is a no-op.
func (lm *LifecycleManager) Start(interval time.Duration) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if lm.done != nil {
		return
	}
	done := make(chan struct{})
	lm.done = done

	lm.wg.Add(1)
	go func() {
		defer lm.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if n := lm.Sweep(); n > 0 {
					slog.Debug("lifecycle sweep removed expired entries", "count", n)
				}
			}
		}
	}()
}

// Stop halts the background sweeper and waits for it to exit.
func (lm *LifecycleManager) Stop() {
	lm.mu.Lock()
	if lm.done == nil {
		lm.mu.Unlock()
		return
	}
	close(lm.done)
	lm.done = nil
	lm.mu.Unlock()
	lm.wg.Wait()
}
