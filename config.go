package tiermem

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/nexxia-ai/tiermem/compress"
	"github.com/nexxia-ai/tiermem/tier"
	"github.com/nexxia-ai/tiermem/utils"
)

// CompressionConfig selects the engine's read-time compression policy.
type CompressionConfig struct {
	Dedup  string `env:"COMPRESS_DEDUP"`
	Trim   string `env:"COMPRESS_TRIM"`
	Budget int    `env:"COMPRESS_BUDGET"`
}

// Config is the full configuration surface of a Manager.
type Config struct {
	Tiers       tier.Config
	Compression CompressionConfig

	// TokenBudget bounds rendered prompts; <= 0 disables trimming.
	TokenBudget int `env:"TOKEN_BUDGET"`

	// VaultPath enables the append-only NDJSON negative-example log.
	VaultPath string `env:"VAULT_PATH"`

	// SweepInterval enables the background TTL sweeper when > 0.
	SweepInterval time.Duration `env:"SWEEP_INTERVAL"`

	// TemplatePath preloads prompt templates from a YAML file or directory.
	TemplatePath string `env:"TEMPLATE_PATH"`
}

// DefaultConfig returns the stock configuration: all tiers enabled, 30m TTL
// on the session and short tiers, 8192-token prompt budget, hash dedup with
// content-preserving trimming.
func DefaultConfig() Config {
	return Config{
		Tiers:       tier.DefaultConfig(),
		Compression: CompressionConfig{Dedup: string(compress.DedupHash), Trim: string(compress.TrimKeepTail)},
		TokenBudget: 8192,
	}
}

// LoadConfig overlays TIERMEM_-prefixed environment variables onto the
// defaults, e.g. TIERMEM_SHORT_MAX_TOKENS=4096.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "TIERMEM_"}); err != nil {
		return Config{}, fmt.Errorf("parse environment config: %w", err)
	}
	return cfg, nil
}

// LoadConfigFromFile loads a dotenv-style file into the process environment
// and then parses the configuration from it.
func LoadConfigFromFile(path string) (Config, error) {
	if err := utils.LoadEnvFile(path); err != nil {
		return Config{}, err
	}
	return LoadConfig()
}

func (c CompressionConfig) compressor() *compress.Compressor {
	return &compress.Compressor{
		Dedup:  compress.DedupStrategy(c.Dedup),
		Trim:   compress.TrimPolicy(c.Trim),
		Budget: c.Budget,
	}
}
