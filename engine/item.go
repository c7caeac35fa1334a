package engine

import (
	"strings"
	"time"
)

// Status is the heuristic health annotation attached to every stored turn.
type Status string

const (
	StatusOK   Status = "OK"
	StatusWarn Status = "WARN"
	StatusErr  Status = "ERR"
)

// MemoryItem is one stored conversation turn. Items are created on write and
// never mutated in place; compression produces new items that reference the
// original through metadata.
type MemoryItem struct {
	Content   string
	Metadata  map[string]any
	Timestamp time.Time
}

// Role returns the stored role, or fallback when none was recorded.
func (m MemoryItem) Role(fallback string) string {
	if role, ok := m.Metadata["role"].(string); ok && role != "" {
		return role
	}
	return fallback
}

// Status returns the stored status annotation, defaulting to OK.
func (m MemoryItem) Status() Status {
	if s, ok := m.Metadata["status"].(string); ok && s != "" {
		return Status(s)
	}
	return StatusOK
}

var warnPhrases = []string{"sorry", "cannot", "unable to"}
var errPhrases = []string{"error", "exception", "traceback"}

// classifyStatus inspects an assistant turn for refusal phrases (WARN) and
// error traces (ERR). Non-assistant turns are always OK.
func classifyStatus(role, content string) Status {
	if !strings.EqualFold(role, "assistant") {
		return StatusOK
	}
	text := strings.ToLower(content)
	for _, phrase := range warnPhrases {
		if strings.Contains(text, phrase) {
			return StatusWarn
		}
	}
	for _, phrase := range errPhrases {
		if strings.Contains(text, phrase) {
			return StatusErr
		}
	}
	return StatusOK
}
