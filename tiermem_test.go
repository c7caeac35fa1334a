package tiermem

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexxia-ai/tiermem/compress"
	"github.com/nexxia-ai/tiermem/engine"
	"github.com/nexxia-ai/tiermem/prompt"
	"github.com/nexxia-ai/tiermem/tier"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := New(DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func TestManagerWriteAndReadBack(t *testing.T) {
	m := newTestManager(t)
	md := map[string]any{"session_id": "c1"}

	require.NoError(t, m.WriteTurn("user", "Hello", md))
	require.NoError(t, m.WriteTurn("assistant", "Hi", md))

	items, err := m.Context("task", "c1", "", engine.Filters{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Hello", items[0].Content)
	assert.Equal(t, "Hi", items[1].Content)

	dumps := m.DumpMemory()
	require.Len(t, dumps, 1)
	assert.Equal(t, "c1", dumps[0].SessionID)
	assert.Len(t, dumps[0].Turns, 2)
}

func TestManagerBuildPromptFallback(t *testing.T) {
	m := newTestManager(t)
	md := map[string]any{"session_id": "c1"}

	require.NoError(t, m.WriteTurn("user", "Hello", md))
	require.NoError(t, m.WriteTurn("assistant", "Hi", md))

	items, err := m.Context("task", "c1", "", engine.Filters{})
	require.NoError(t, err)

	payload, err := m.BuildPrompt(prompt.BuildRequest{
		Context:   items,
		UserQuery: "what next?",
	})
	require.NoError(t, err)
	require.Len(t, payload.Messages, 3)
	assert.Equal(t, "what next?", payload.Messages[2].Content)
}

func TestManagerBuildPromptUsesVaultExamples(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Vault().AddExample("never guess file paths"))
	require.NoError(t, m.Builder().Registry().Register("guarded",
		"System: Answer carefully.\n{{.negative_examples}}\nUser: {{.user_query}}"))

	payload, err := m.BuildPrompt(prompt.BuildRequest{
		TemplateID: "guarded",
		UserQuery:  "where is the config?",
	})
	require.NoError(t, err)

	var all string
	for _, msg := range payload.Messages {
		all += msg.Content + "\n"
	}
	assert.Contains(t, all, "NEGATIVE_EXAMPLES")
	assert.Contains(t, all, "| 1. never guess file paths")
}

func TestManagerBuildPromptAppliesConfiguredBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TokenBudget = 4
	m, err := New(cfg)
	require.NoError(t, err)
	defer m.Close()

	payload, err := m.BuildPrompt(prompt.BuildRequest{
		Context: []engine.MemoryItem{
			{Content: "one two three"},
			{Content: "four five six"},
		},
		UserQuery: "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, payload.Trimmed.Context)
	require.Len(t, payload.Messages, 2)
}

func TestManagerPromoteAndSweep(t *testing.T) {
	m := newTestManager(t)
	md := map[string]any{"session_id": "s1"}

	require.NoError(t, m.WriteTurn("user", "remember this", md))

	// Short-term entries are keyed by session and turn ordinal.
	key := tier.NamespacedKey("s1", "0")
	m.Promote(key)

	v, ok := m.Tiers().Store(tier.TierLong).Get(key)
	require.True(t, ok)
	assert.Equal(t, "remember this", v)

	assert.Equal(t, 0, m.Sweep())
}

func TestManagerAppliesConfiguredNamespaces(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tiers.Session.Namespace = "tenantA"
	m, err := New(cfg)
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Tiers().Put("pref", "dark", tier.TierSession))

	// The raw store sees the transformed key.
	_, ok := m.Tiers().Store(tier.TierSession).Get("pref")
	assert.False(t, ok)
	v, ok := m.Tiers().Store(tier.TierSession).Get("tenantA:pref")
	require.True(t, ok)
	assert.Equal(t, "dark", v)

	// The gateway resolves the same key back.
	v, ok = m.Tiers().Get("pref", tier.TierSession)
	require.True(t, ok)
	assert.Equal(t, "dark", v)
}

func TestManagerVaultPersistence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.VaultPath = t.TempDir() + "/vault.ndjson"

	m, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, m.Vault().AddExample("persisted"))
	m.Close()

	reopened, err := New(cfg)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, []string{"persisted"}, reopened.Vault().Examples())
}

func TestManagerBackgroundSweeper(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SweepInterval = time.Millisecond

	m, err := New(cfg)
	require.NoError(t, err)
	m.Close()
	m.Close() // closing twice is safe
}

func TestManagerOversizeTurn(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tiers.Short.MaxTokens = 3
	m, err := New(cfg)
	require.NoError(t, err)
	defer m.Close()

	err = m.WriteTurn("user", "this is way past the short tier budget", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, tier.ErrOversize)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("TIERMEM_SHORT_MAX_TOKENS", "4096")
	t.Setenv("TIERMEM_TOKEN_BUDGET", "1024")
	t.Setenv("TIERMEM_COMPRESS_TRIM", "diff_patch")
	t.Setenv("TIERMEM_SWEEP_INTERVAL", "90s")
	t.Setenv("TIERMEM_COLD_ENABLED", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 4096, cfg.Tiers.Short.MaxTokens)
	assert.Equal(t, 1024, cfg.TokenBudget)
	assert.Equal(t, string(compress.TrimDiffPatch), cfg.Compression.Trim)
	assert.Equal(t, 90*time.Second, cfg.SweepInterval)
	assert.False(t, cfg.Tiers.Cold.Enabled)

	// Untouched fields keep their defaults.
	assert.Equal(t, 50, cfg.Tiers.Short.MaxMessages)
	assert.True(t, cfg.Tiers.Session.Enabled)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"# prompt limits\nTIERMEM_TOKEN_BUDGET=512\nexport TIERMEM_VAULT_PATH=\"/tmp/vault.ndjson\"\n"), 0o644))

	// Register the keys so the framework restores the environment afterwards.
	t.Setenv("TIERMEM_TOKEN_BUDGET", "1")
	t.Setenv("TIERMEM_VAULT_PATH", "unused")

	cfg, err := LoadConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.TokenBudget)
	assert.Equal(t, "/tmp/vault.ndjson", cfg.VaultPath)
}

func TestDefaultConfigCompressionIsContentPreserving(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, string(compress.DedupHash), cfg.Compression.Dedup)
	assert.Equal(t, string(compress.TrimKeepTail), cfg.Compression.Trim)
	assert.Equal(t, 0, cfg.Compression.Budget)
}
