// Package prompt renders a bounded, injection-safe message list from memory
// context, negative examples and tool specs. Untrusted text goes through
// data-section fencing; the final message set is trimmed to a token budget
// in a fixed priority order.
package prompt

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/nexxia-ai/tiermem/engine"
	"github.com/nexxia-ai/tiermem/provider"
	"github.com/nexxia-ai/tiermem/utils"
)

// ToolSpec describes one tool offered to the model. Name and free text are
// sanitized before rendering.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// BuildRequest carries everything a single build needs. TemplateID may be
// empty: the builder then falls back to replaying context items as messages
// followed by the user query. TokenBudget <= 0 disables trimming.
type BuildRequest struct {
	TemplateID       string
	Context          []engine.MemoryItem
	UserQuery        string
	NegativeExamples []string
	Tools            []ToolSpec
	TokenBudget      int
	Vars             map[string]any
}

// TrimCounts reports how much material budget trimming removed, so callers
// can detect truncation.
type TrimCounts struct {
	Context   int
	Negatives int
	Tools     int
}

// Payload is the build result.
type Payload struct {
	Messages []provider.Message
	Trimmed  TrimCounts
}

// Builder assembles prompts from a template registry.
type Builder struct {
	registry *Registry
}

// NewBuilder creates a builder. A nil registry gets an empty one, which
// makes every build take the template-less fallback path.
func NewBuilder(registry *Registry) *Builder {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Builder{registry: registry}
}

// Registry exposes the builder's template registry.
func (b *Builder) Registry() *Registry {
	return b.registry
}

// roleLine matches a role prefix on the template's own literal lines. Fenced
// data lines carry the data prefix and can never match.
var roleLine = regexp.MustCompile(`(?i)^(user|assistant|system):\s?(.*)$`)

// Build renders the final message list. When the rendered set exceeds the
// token budget, material is removed one entry at a time with a re-render
// after each removal: oldest context first, then trailing tools, then
// trailing negative examples. The user query itself is never altered.
func (b *Builder) Build(req BuildRequest) (*Payload, error) {
	context := append([]engine.MemoryItem(nil), req.Context...)
	tools := append([]ToolSpec(nil), req.Tools...)
	negatives := append([]string(nil), req.NegativeExamples...)

	var trimmed TrimCounts
	for {
		messages, err := b.render(req, context, negatives, tools)
		if err != nil {
			return nil, err
		}
		if req.TokenBudget <= 0 || totalTokens(messages) <= req.TokenBudget {
			return &Payload{Messages: messages, Trimmed: trimmed}, nil
		}

		switch {
		case len(context) > 0:
			context = context[1:]
			trimmed.Context++
		case len(tools) > 0:
			tools = tools[:len(tools)-1]
			trimmed.Tools++
		case len(negatives) > 0:
			negatives = negatives[:len(negatives)-1]
			trimmed.Negatives++
		default:
			// Nothing trimmable is left; the user query stays intact.
			return &Payload{Messages: messages, Trimmed: trimmed}, nil
		}
	}
}

func (b *Builder) render(req BuildRequest, context []engine.MemoryItem, negatives []string, tools []ToolSpec) ([]provider.Message, error) {
	tmpl, ok := b.registry.Get(req.TemplateID)
	if req.TemplateID == "" || !ok {
		return fallbackMessages(context, req.UserQuery), nil
	}

	fill := map[string]any{
		"context":           formatContextItems(context),
		"negative_examples": formatNegativeExamples(negatives),
		"tools":             formatToolSpecs(tools),
		"user_query":        formatUserQuery(req.UserQuery),
	}
	for k, v := range req.Vars {
		fill[k] = v
	}

	var buf bytes.Buffer
	if err := tmpl.tmpl.Execute(&buf, fill); err != nil {
		return nil, fmt.Errorf("render template %q: %w", req.TemplateID, err)
	}
	return classifyLines(buf.String()), nil
}

// fallbackMessages replays each context item under its stored role and ends
// with the user query.
func fallbackMessages(context []engine.MemoryItem, userQuery string) []provider.Message {
	messages := make([]provider.Message, 0, len(context)+1)
	for _, item := range context {
		messages = append(messages, provider.Message{
			Role:    provider.MessageRole(item.Role(string(provider.AssistantRole))),
			Content: item.Content,
		})
	}
	return append(messages, provider.Message{Role: provider.UserRole, Content: userQuery})
}

// classifyLines splits rendered template text into messages. A line starting
// with a literal role prefix becomes a message of that role; every other
// line is system text. Consecutive lines of the same role collapse into one
// message.
func classifyLines(rendered string) []provider.Message {
	var messages []provider.Message
	appendLine := func(role provider.MessageRole, content string) {
		if n := len(messages); n > 0 && messages[n-1].Role == role {
			messages[n-1].Content += "\n" + content
			return
		}
		messages = append(messages, provider.Message{Role: role, Content: content})
	}

	for _, line := range strings.Split(rendered, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if m := roleLine.FindStringSubmatch(line); m != nil {
			appendLine(provider.MessageRole(strings.ToLower(m[1])), m[2])
			continue
		}
		appendLine(provider.SystemRole, line)
	}
	return messages
}

func totalTokens(messages []provider.Message) int {
	total := 0
	for _, msg := range messages {
		total += utils.CountTokens(msg.Content)
	}
	return total
}
