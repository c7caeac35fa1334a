package engine

import "log/slog"

// LogObserver emits a structured debug log line for every write and every
// compression event.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates a log observer. A nil logger uses slog.Default.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger}
}

func (l *LogObserver) OnWrite(sessionID string, item MemoryItem) {
	l.logger.Debug("turn stored",
		"session", sessionID,
		"role", item.Role("unknown"),
		"status", string(item.Status()),
		"chars", len(item.Content))
}

func (l *LogObserver) OnCompress(sessionID string, before, after int) {
	l.logger.Debug("context compressed",
		"session", sessionID,
		"items_before", before,
		"items_after", after)
}
