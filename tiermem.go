// Package tiermem is a tiered conversational-context memory manager for LLM
// applications. It ingests dialogue turns into session, short-term,
// long-term and cold stores with distinct TTL and eviction policies,
// compresses history under a token budget, and renders bounded,
// injection-safe prompts.
package tiermem

import (
	"fmt"

	"github.com/nexxia-ai/tiermem/artifact"
	"github.com/nexxia-ai/tiermem/engine"
	"github.com/nexxia-ai/tiermem/prompt"
	"github.com/nexxia-ai/tiermem/tier"
	"github.com/nexxia-ai/tiermem/vault"
)

// Manager wires the memory tiers, the context engine, the prompt builder,
// the negative-example vault and the artifact store behind one object. It is
// safe for concurrent use; each tier serializes its own mutations.
type Manager struct {
	cfg Config

	scache  *tier.SCache
	mbuffer *tier.MBuffer
	lvector *tier.LVector
	cold    *tier.ColdStore

	tiers     *tier.TierCache
	lifecycle *tier.LifecycleManager
	engine    *engine.Engine
	builder   *prompt.Builder
	vault     *vault.Vault
	artifacts *artifact.Manager
}

// New builds a Manager from config. The background sweeper starts only when
// cfg.SweepInterval is positive; call Close to stop it.
func New(cfg Config) (*Manager, error) {
	m := &Manager{
		cfg:       cfg,
		scache:    tier.NewSCache(cfg.Tiers.Session.Capacity, cfg.Tiers.Session.TTL),
		mbuffer:   tier.NewMBuffer(cfg.Tiers.Short.MaxMessages, cfg.Tiers.Short.MaxTokens, cfg.Tiers.Short.TTL),
		lvector:   tier.NewLVector(cfg.Tiers.Long.Capacity),
		cold:      tier.NewColdStore(cfg.Tiers.Cold.Capacity),
		artifacts: artifact.NewManager(),
	}
	m.tiers = tier.NewTierCache(m.scache, m.mbuffer, m.lvector, m.cold)
	m.tiers.ApplyNamespaces(cfg.Tiers)
	m.lifecycle = tier.NewLifecycleManager(m.scache, m.mbuffer, m.lvector)
	m.engine = engine.New(m.scache, m.mbuffer, m.lvector).WithCompressor(cfg.Compression.compressor())
	m.engine.AddObserver(engine.NewLogObserver(nil))

	registry := prompt.NewRegistry()
	if cfg.TemplatePath != "" {
		if err := registry.LoadFromPath(cfg.TemplatePath); err != nil {
			return nil, fmt.Errorf("load templates: %w", err)
		}
	}
	m.builder = prompt.NewBuilder(registry)

	if cfg.VaultPath != "" {
		v, err := vault.Open(cfg.VaultPath)
		if err != nil {
			return nil, fmt.Errorf("open vault: %w", err)
		}
		m.vault = v
	} else {
		m.vault = vault.New()
	}

	if cfg.SweepInterval > 0 {
		m.lifecycle.Start(cfg.SweepInterval)
	}
	return m, nil
}

// Close stops the background sweeper, if one is running.
func (m *Manager) Close() {
	m.lifecycle.Stop()
}

// WriteTurn records one conversation turn across the memory tiers.
func (m *Manager) WriteTurn(role, content string, metadata map[string]any) error {
	return m.engine.WriteTurn(role, content, metadata)
}

// Context materializes the context for a scope. See engine.Engine.Context.
func (m *Manager) Context(scope, key, query string, filters engine.Filters) ([]engine.MemoryItem, error) {
	return m.engine.Context(scope, key, query, filters)
}

// BuildPrompt renders a message list for a build request. When the request
// carries no token budget the configured budget applies, and when it carries
// no negative examples the vault's contents are used.
func (m *Manager) BuildPrompt(req prompt.BuildRequest) (*prompt.Payload, error) {
	if req.TokenBudget <= 0 {
		req.TokenBudget = m.cfg.TokenBudget
	}
	if req.NegativeExamples == nil {
		req.NegativeExamples = m.vault.Examples()
	}
	return m.builder.Build(req)
}

// DumpMemory exports all session histories for debugging.
func (m *Manager) DumpMemory() []engine.SessionDump {
	return m.engine.DumpMemory()
}

// Promote copies a short-term buffer entry into the long-term store.
func (m *Manager) Promote(key string) {
	m.lifecycle.Promote(key)
}

// Sweep removes TTL-expired entries from the session and short-term tiers.
func (m *Manager) Sweep() int {
	return m.lifecycle.Sweep()
}

// Engine returns the context engine.
func (m *Manager) Engine() *engine.Engine { return m.engine }

// Builder returns the prompt builder.
func (m *Manager) Builder() *prompt.Builder { return m.builder }

// Tiers returns the tier gateway for direct store access.
func (m *Manager) Tiers() *tier.TierCache { return m.tiers }

// Vault returns the negative-example vault.
func (m *Manager) Vault() *vault.Vault { return m.vault }

// Artifacts returns the artifact version manager.
func (m *Manager) Artifacts() *artifact.Manager { return m.artifacts }
