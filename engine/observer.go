package engine

// Observer receives synchronous notifications from the engine. Callbacks run
// on the calling goroutine after the engine has released its lock; they must
// not block.
type Observer interface {
	// OnWrite fires after a turn is stored.
	OnWrite(sessionID string, item MemoryItem)
	// OnCompress fires after a context read compressed the materialized
	// history, with the item counts before and after.
	OnCompress(sessionID string, before, after int)
}
