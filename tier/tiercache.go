package tier

import "time"

// MemTier names one of the four cache levels.
type MemTier string

const (
	TierSession MemTier = "S"
	TierShort   MemTier = "M"
	TierLong    MemTier = "L"
	TierCold    MemTier = "COLD"
)

// TierConfig is the recognized per-tier configuration surface.
type TierConfig struct {
	Enabled     bool          `yaml:"enabled" env:"ENABLED"`
	Capacity    int           `yaml:"capacity" env:"CAPACITY"`
	TTL         time.Duration `yaml:"ttl" env:"TTL"`
	MaxMessages int           `yaml:"max_messages" env:"MAX_MESSAGES"`
	MaxTokens   int           `yaml:"max_tokens" env:"MAX_TOKENS"`
	Namespace   string        `yaml:"namespace" env:"NAMESPACE"`
}

// Config configures all four tiers.
type Config struct {
	Session TierConfig `yaml:"session" envPrefix:"SESSION_"`
	Short   TierConfig `yaml:"short" envPrefix:"SHORT_"`
	Long    TierConfig `yaml:"long" envPrefix:"LONG_"`
	Cold    TierConfig `yaml:"cold" envPrefix:"COLD_"`
}

// DefaultConfig enables every tier with the stock limits: 30 minute TTL on
// the session and short tiers, 50 messages / 2048 tokens in the short buffer.
func DefaultConfig() Config {
	return Config{
		Session: TierConfig{Enabled: true, TTL: 30 * time.Minute},
		Short:   TierConfig{Enabled: true, TTL: 30 * time.Minute, MaxMessages: 50, MaxTokens: 2048},
		Long:    TierConfig{Enabled: true},
		Cold:    TierConfig{Enabled: true},
	}
}

// TierCache routes get/put/delete to the configured tier stores. Namespacing
// is a key transform: when a tier has a namespace configured, keys are stored
// as "namespace:key" so sessions or users sharing one store cannot collide.
type TierCache struct {
	stores     map[MemTier]Store
	namespaces map[MemTier]string
}

// NewTierCache assembles a gateway over explicit stores.
func NewTierCache(s, m, l, cold Store) *TierCache {
	return &TierCache{
		stores: map[MemTier]Store{
			TierSession: s,
			TierShort:   m,
			TierLong:    l,
			TierCold:    cold,
		},
		namespaces: make(map[MemTier]string),
	}
}

// FromConfig builds the four tier stores from config. A disabled tier becomes
// a NoopStore that absorbs writes and never returns values.
func FromConfig(cfg Config) *TierCache {
	var s Store = NoopStore{}
	if cfg.Session.Enabled {
		s = NewSCache(cfg.Session.Capacity, cfg.Session.TTL)
	}
	var m Store = NoopStore{}
	if cfg.Short.Enabled {
		m = NewMBuffer(cfg.Short.MaxMessages, cfg.Short.MaxTokens, cfg.Short.TTL)
	}
	var l Store = NoopStore{}
	if cfg.Long.Enabled {
		l = NewLVector(cfg.Long.Capacity)
	}
	var cold Store = NoopStore{}
	if cfg.Cold.Enabled {
		cold = NewColdStore(cfg.Cold.Capacity)
	}

	tc := NewTierCache(s, m, l, cold)
	tc.ApplyNamespaces(cfg)
	return tc
}

// SetNamespace sets the key namespace for a tier. An empty namespace stores
// keys untransformed.
func (t *TierCache) SetNamespace(tier MemTier, namespace string) {
	t.namespaces[tier] = namespace
}

// ApplyNamespaces copies the per-tier namespace options from cfg onto the
// gateway.
func (t *TierCache) ApplyNamespaces(cfg Config) {
	t.SetNamespace(TierSession, cfg.Session.Namespace)
	t.SetNamespace(TierShort, cfg.Short.Namespace)
	t.SetNamespace(TierLong, cfg.Long.Namespace)
	t.SetNamespace(TierCold, cfg.Cold.Namespace)
}

// Store returns the underlying store for a tier.
func (t *TierCache) Store(tier MemTier) Store {
	return t.stores[tier]
}

func (t *TierCache) Get(key string, tier MemTier) (any, bool) {
	return t.stores[tier].Get(t.transform(tier, key))
}

func (t *TierCache) Put(key string, value any, tier MemTier) error {
	return t.stores[tier].Put(t.transform(tier, key), value)
}

func (t *TierCache) Delete(key string, tier MemTier) {
	t.stores[tier].Delete(t.transform(tier, key))
}

func (t *TierCache) transform(tier MemTier, key string) string {
	if ns := t.namespaces[tier]; ns != "" {
		return NamespacedKey(ns, key)
	}
	return key
}

// NamespacedKey prefixes key with a namespace.
func NamespacedKey(namespace, key string) string {
	return namespace + ":" + key
}

// NoopStore is the placeholder for a disabled tier.
type NoopStore struct{}

func (NoopStore) Get(string) (any, bool) { return nil, false }
func (NoopStore) Put(string, any) error  { return nil }
func (NoopStore) Delete(string)          {}
func (NoopStore) Len() int               { return 0 }
