// Package engine orchestrates turn ingestion and scope-based context
// retrieval over the memory tiers. The engine owns no ambient state: the
// session is resolved from explicit metadata on every call.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/nexxia-ai/tiermem/compress"
	"github.com/nexxia-ai/tiermem/tier"
	"github.com/nexxia-ai/tiermem/utils"
)

// historyCap bounds how many most-recent items a task-scope read considers
// before compression.
const historyCap = 50

// Filters excludes annotated turns from a task-scope read.
type Filters struct {
	ExcludeWarn bool
	ExcludeErr  bool
}

// Retriever is the external retrieval collaborator consulted for topic
// scope. The engine works without one; topic reads then return nothing.
type Retriever interface {
	Retrieve(query string, topK int) ([]MemoryItem, error)
}

// Engine fans written turns out to the session, short-term and long-term
// tiers and materializes filtered, compressed context views.
type Engine struct {
	scache  *tier.SCache
	mbuffer *tier.MBuffer
	lvector *tier.LVector

	compressor *compress.Compressor
	retriever  Retriever
	clock      func() time.Time

	mu          sync.Mutex
	lastSession string
	observers   []Observer
}

// New creates an engine over the given tier stores. The default compression
// policy is hash dedup with no budget trimming, so stored content survives a
// read unchanged; diff-patch or budgeted policies are opt-in via
// WithCompressor.
func New(s *tier.SCache, m *tier.MBuffer, l *tier.LVector) *Engine {
	return &Engine{
		scache:  s,
		mbuffer: m,
		lvector: l,
		compressor: &compress.Compressor{
			Dedup: compress.DedupHash,
			Trim:  compress.TrimKeepTail,
		},
		clock: time.Now,
	}
}

// WithCompressor replaces the read-time compression policy.
func (e *Engine) WithCompressor(c *compress.Compressor) *Engine {
	e.compressor = c
	return e
}

// WithRetriever wires the topic-scope retrieval collaborator.
func (e *Engine) WithRetriever(r Retriever) *Engine {
	e.retriever = r
	return e
}

// WithClock replaces the engine's time source. For tests.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	return e
}

// AddObserver appends a synchronous observer.
func (e *Engine) AddObserver(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, o)
}

// WriteTurn records one conversation turn. The session id comes from the
// "session_id" or "conv_id" metadata key, defaulting to "default". The turn
// is annotated with a status, appended to the session history, buffered in
// the short-term tier under an order-preserving key, and, when a "user_id"
// is present, written to the long-term tier. An oversize rejection from the
// short-term buffer propagates and leaves the session history untouched.
func (e *Engine) WriteTurn(role, content string, metadata map[string]any) error {
	md := make(map[string]any, len(metadata)+2)
	for k, v := range metadata {
		md[k] = v
	}

	sessionID := sessionFromMetadata(md)
	md["status"] = string(classifyStatus(role, content))
	md["role"] = role

	item := MemoryItem{Content: content, Metadata: md, Timestamp: e.clock()}

	e.mu.Lock()
	history := e.sessionHistory(sessionID)

	// Buffer first: a rejected oversize value must not leave a partial
	// write behind in the session history.
	bufferKey := tier.NamespacedKey(sessionID, fmt.Sprintf("%d", len(history)))
	if err := e.mbuffer.Put(bufferKey, content); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("write turn: %w", err)
	}

	history = append(history, item)
	if err := e.scache.Put(sessionID, history); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("write turn: %w", err)
	}
	e.lastSession = sessionID

	if userID, ok := md["user_id"].(string); ok && userID != "" {
		e.lvector.Put(tier.NamespacedKey("user", userID), item)
	}
	observers := append([]Observer(nil), e.observers...)
	e.mu.Unlock()

	for _, o := range observers {
		o.OnWrite(sessionID, item)
	}
	return nil
}

// Context materializes the context for a scope.
//
//   - "task": the session history by key (default: last written session),
//     filtered, capped at the most recent 50 items, then compressed.
//   - "user": the long-term entries for the user key.
//   - "topic": delegated to the retriever collaborator; empty without one.
//   - anything else: the short-term buffer contents in insertion order.
//
// Unknown scopes never fail; they fall back to the short-term view.
func (e *Engine) Context(scope, key, query string, filters Filters) ([]MemoryItem, error) {
	switch scope {
	case "task":
		return e.taskContext(key, filters), nil
	case "user":
		return e.userContext(key), nil
	case "topic":
		if e.retriever == nil {
			return []MemoryItem{}, nil
		}
		items, err := e.retriever.Retrieve(query, 5)
		if err != nil {
			return nil, fmt.Errorf("topic retrieval: %w", err)
		}
		return items, nil
	default:
		return e.bufferContext(), nil
	}
}

func (e *Engine) taskContext(key string, filters Filters) []MemoryItem {
	e.mu.Lock()
	sessionID := key
	if sessionID == "" {
		sessionID = e.lastSession
	}
	if sessionID == "" {
		sessionID = "default"
	}
	history := e.sessionHistory(sessionID)
	observers := append([]Observer(nil), e.observers...)
	e.mu.Unlock()

	filtered := history[:0:0]
	for _, item := range history {
		if filters.ExcludeWarn && item.Status() == StatusWarn {
			continue
		}
		if filters.ExcludeErr && item.Status() == StatusErr {
			continue
		}
		filtered = append(filtered, item)
	}
	if len(filtered) > historyCap {
		filtered = filtered[len(filtered)-historyCap:]
	}

	compressed := e.compressItems(filtered)
	if len(compressed) != len(filtered) {
		for _, o := range observers {
			o.OnCompress(sessionID, len(filtered), len(compressed))
		}
	}
	return compressed
}

// compressItems applies the read-time compression policy while carrying item
// metadata across. The canonical stored history is never touched; rewritten
// chunks keep a SHA-1 back-reference to their original content.
func (e *Engine) compressItems(items []MemoryItem) []MemoryItem {
	if len(items) == 0 {
		return []MemoryItem{}
	}

	deduped := items
	if e.compressor.Dedup == compress.DedupHash {
		seen := make(map[string]struct{}, len(items))
		deduped = make([]MemoryItem, 0, len(items))
		for _, item := range items {
			h := utils.HashText(item.Content)
			if _, ok := seen[h]; ok {
				continue
			}
			seen[h] = struct{}{}
			deduped = append(deduped, item)
		}
	}

	contents := make([]string, len(deduped))
	for i, item := range deduped {
		contents[i] = item.Content
	}
	trim := compress.Compressor{Dedup: compress.DedupNone, Trim: e.compressor.Trim, Budget: e.compressor.Budget}
	trimmed := trim.Compress(contents)

	switch e.compressor.Trim {
	case compress.TrimKeepHead:
		return append([]MemoryItem{}, deduped[:len(trimmed)]...)
	case compress.TrimKeepTail:
		return append([]MemoryItem{}, deduped[len(deduped)-len(trimmed):]...)
	case compress.TrimDiffPatch:
		out := make([]MemoryItem, len(trimmed))
		for i, text := range trimmed {
			src := deduped[i]
			if text == src.Content {
				out[i] = src
				continue
			}
			md := make(map[string]any, len(src.Metadata)+2)
			for k, v := range src.Metadata {
				md[k] = v
			}
			md["compressed"] = true
			md["original_sha1"] = utils.HashText(src.Content)
			out[i] = MemoryItem{Content: text, Metadata: md, Timestamp: src.Timestamp}
		}
		return out
	default:
		return append([]MemoryItem{}, deduped...)
	}
}

func (e *Engine) userContext(key string) []MemoryItem {
	if key == "" {
		return []MemoryItem{}
	}
	value, ok := e.lvector.Get(tier.NamespacedKey("user", key))
	if !ok {
		return []MemoryItem{}
	}
	switch v := value.(type) {
	case []MemoryItem:
		return v
	case MemoryItem:
		return []MemoryItem{v}
	default:
		return []MemoryItem{{Content: fmt.Sprint(v), Metadata: map[string]any{}}}
	}
}

func (e *Engine) bufferContext() []MemoryItem {
	values := e.mbuffer.Values()
	items := make([]MemoryItem, len(values))
	for i, text := range values {
		items[i] = MemoryItem{Content: text, Metadata: map[string]any{}}
	}
	return items
}

// sessionHistory returns the stored history slice for a session. Callers
// hold e.mu; the per-store lock alone cannot make the read-modify-write in
// WriteTurn atomic.
func (e *Engine) sessionHistory(sessionID string) []MemoryItem {
	value, ok := e.scache.Get(sessionID)
	if !ok {
		return nil
	}
	history, ok := value.([]MemoryItem)
	if !ok {
		return nil
	}
	return history
}

// SessionDump is one session's turns in a debug snapshot.
type SessionDump struct {
	SessionID string     `json:"session_id"`
	Turns     []TurnDump `json:"turns"`
}

// TurnDump is one turn in a debug snapshot.
type TurnDump struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Status  string `json:"status"`
}

// DumpMemory exports every session's full history for inspection. It walks
// all stored turns; keep it off hot paths.
func (e *Engine) DumpMemory() []SessionDump {
	e.mu.Lock()
	defer e.mu.Unlock()

	var dumps []SessionDump
	for _, sessionID := range e.scache.Sessions() {
		history := e.sessionHistory(sessionID)
		turns := make([]TurnDump, len(history))
		for i, item := range history {
			turns[i] = TurnDump{
				Role:    item.Role(""),
				Content: item.Content,
				Status:  string(item.Status()),
			}
		}
		dumps = append(dumps, SessionDump{SessionID: sessionID, Turns: turns})
	}
	return dumps
}

func sessionFromMetadata(md map[string]any) string {
	if id, ok := md["session_id"].(string); ok && id != "" {
		return id
	}
	if id, ok := md["conv_id"].(string); ok && id != "" {
		return id
	}
	return "default"
}
