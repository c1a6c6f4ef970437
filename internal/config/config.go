// Package config handles application configuration from environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Production backends, primary first. Overridden by
// CAMPUSFIX_BASE_URLS or development mode.
var productionBaseURLs = []string{
	"https://campusfix-v8.onrender.com",
	"https://campusfix-backend-s2ow.onrender.com",
}

const developmentBaseURL = "http://localhost:8000"

// Config holds all client configuration.
type Config struct {
	// Mode selects the default backend set: "development" uses the
	// single local backend, anything else the production pair.
	Mode string `env:"CAMPUSFIX_MODE" envDefault:"production"`

	// BaseURLs is the ordered backend list; the first is active and
	// the rest are failover targets.
	BaseURLs []string `env:"CAMPUSFIX_BASE_URLS" envSeparator:","`

	// CacheDir is where the persistent cache lives. Empty disables
	// persistence entirely (memory-only client).
	CacheDir string `env:"CAMPUSFIX_CACHE_DIR"`

	CacheTTL time.Duration `env:"CAMPUSFIX_CACHE_TTL" envDefault:"5m"`
	Timeout  time.Duration `env:"CAMPUSFIX_TIMEOUT" envDefault:"15s"`

	ThumbMaxWidth int     `env:"CAMPUSFIX_THUMB_MAX_WIDTH" envDefault:"90"`
	ThumbQuality  float64 `env:"CAMPUSFIX_THUMB_QUALITY" envDefault:"0.35"`
	ThumbMaxKB    int     `env:"CAMPUSFIX_THUMB_MAX_KB" envDefault:"60"`

	Debug bool `env:"CAMPUSFIX_DEBUG"`
}

// Load reads configuration from environment variables and fills in
// mode-dependent defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if len(cfg.BaseURLs) == 0 {
		if cfg.Mode == "development" {
			cfg.BaseURLs = []string{developmentBaseURL}
		} else {
			cfg.BaseURLs = append([]string(nil), productionBaseURLs...)
		}
	}

	if cfg.CacheDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.CacheDir = filepath.Join(home, ".campusfix", "cache")
		}
	}

	return cfg, cfg.Validate()
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if len(c.BaseURLs) == 0 {
		return fmt.Errorf("no base URLs configured")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CAMPUSFIX_CACHE_TTL must be positive, got %s", c.CacheTTL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("CAMPUSFIX_TIMEOUT must be positive, got %s", c.Timeout)
	}
	if c.ThumbQuality <= 0 || c.ThumbQuality > 1 {
		return fmt.Errorf("CAMPUSFIX_THUMB_QUALITY must be in (0,1], got %g", c.ThumbQuality)
	}
	return nil
}
