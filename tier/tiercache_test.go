package tier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierCacheRouting(t *testing.T) {
	tc := FromConfig(DefaultConfig())

	require.NoError(t, tc.Put("greeting", "hello", TierSession))
	require.NoError(t, tc.Put("greeting", "hi there", TierShort))

	v, ok := tc.Get("greeting", TierSession)
	require.True(t, ok)
	assert.Equal(t, "hello", v)

	v, ok = tc.Get("greeting", TierShort)
	require.True(t, ok)
	assert.Equal(t, "hi there", v)

	tc.Delete("greeting", TierSession)
	_, ok = tc.Get("greeting", TierSession)
	assert.False(t, ok)
	_, ok = tc.Get("greeting", TierShort)
	assert.True(t, ok)
}

func TestTierCacheDisabledTierIsNoop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cold.Enabled = false
	tc := FromConfig(cfg)

	require.NoError(t, tc.Put("k", "v", TierCold))
	_, ok := tc.Get("k", TierCold)
	assert.False(t, ok)
	assert.Equal(t, 0, tc.Store(TierCold).Len())
}

func TestTierCacheNamespacing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Session.Namespace = "tenantA"
	tc := FromConfig(cfg)

	require.NoError(t, tc.Put("pref", "dark", TierSession))

	// The raw store sees the transformed key.
	_, ok := tc.Store(TierSession).Get("pref")
	assert.False(t, ok)
	v, ok := tc.Store(TierSession).Get("tenantA:pref")
	require.True(t, ok)
	assert.Equal(t, "dark", v)

	// The gateway resolves the same key back.
	v, ok = tc.Get("pref", TierSession)
	require.True(t, ok)
	assert.Equal(t, "dark", v)
}

func TestNamespacedKey(t *testing.T) {
	assert.Equal(t, "sess1:topic", NamespacedKey("sess1", "topic"))
}

func TestDefaultConfigLimits(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.Session.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 50, cfg.Short.MaxMessages)
	assert.Equal(t, 2048, cfg.Short.MaxTokens)
	assert.True(t, cfg.Long.Enabled)
	assert.True(t, cfg.Cold.Enabled)
}
