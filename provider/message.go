// Package provider defines the contract the memory core expects from LLM and
// embedding collaborators: the message shape, the error taxonomy and the
// retry discipline. The core never calls a provider while holding a tier
// lock; providers belong to the outer pipeline.
package provider

import "context"

type MessageRole string

const (
	UserRole      MessageRole = "user"
	AssistantRole MessageRole = "assistant"
	SystemRole    MessageRole = "system"
)

// Message is one chat message in provider wire order.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// Provider is the opaque completion/embedding service consumed by callers
// composing the full pipeline.
type Provider interface {
	Complete(ctx context.Context, messages []Message) (string, error)
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}
