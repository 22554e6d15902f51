package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if SCOREBOARD_CONFIG is set
//  3. env (prefix SCOREBOARD_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("SCOREBOARD_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: SCOREBOARD_ADDR, SCOREBOARD_TOTAL_TASKS, ...
	// Map env keys like SCOREBOARD_TOTAL_TASKS -> total_tasks (flat keys),
	// preserving underscores to match the koanf tags on the struct.
	envProvider := env.Provider("SCOREBOARD_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "scoreboard_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.StoreBaseURL == "" {
		return fmt.Errorf("%w: store_base_url must not be empty", ErrInvalidConfig)
	}
	if c.TotalTasks <= 0 {
		return fmt.Errorf("%w: total_tasks must be positive, got %d", ErrInvalidConfig, c.TotalTasks)
	}
	if c.RetryAttempts <= 0 {
		return fmt.Errorf("%w: retry_attempts must be positive", ErrInvalidConfig)
	}
	if c.DebounceMS <= 0 {
		return fmt.Errorf("%w: debounce_ms must be positive", ErrInvalidConfig)
	}
	if c.CacheTTLSeconds <= 0 {
		return fmt.Errorf("%w: cache_ttl_seconds must be positive", ErrInvalidConfig)
	}
	return nil
}
