package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/clinviz/studyflow/pkg/layout"
)

// Cache backend names accepted in the config file.
const (
	CacheBackendFile  = "file"
	CacheBackendRedis = "redis"
	CacheBackendNone  = "none"
)

// Config is the user configuration loaded from ~/.config/studyflow/config.toml.
// All fields are optional; a missing file yields the defaults.
type Config struct {
	Cache  CacheConfig  `toml:"cache"`
	Layout LayoutConfig `toml:"layout"`
}

// CacheConfig selects the pipeline cache backend.
type CacheConfig struct {
	// Backend is "file" (default), "redis", or "none".
	Backend string `toml:"backend"`
	// RedisAddr is the host:port of the Redis server, for the redis backend.
	RedisAddr string `toml:"redis_addr"`
	// Namespace prefixes every cache key, isolating entries when several
	// projects or users share one backend.
	Namespace string `toml:"namespace"`
}

// LayoutConfig overrides the default layout spacing.
type LayoutConfig struct {
	HorizontalSpacing float64 `toml:"horizontal_spacing"`
	VerticalSpacing   float64 `toml:"vertical_spacing"`
	BranchRowHeight   float64 `toml:"branch_row_height"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Cache: CacheConfig{
			Backend:   CacheBackendFile,
			RedisAddr: "localhost:6379",
		},
	}
}

// LoadConfig reads the config file at path, or the default location when path
// is empty. A missing file is not an error; a malformed file is.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		var err error
		path, err = configPath()
		if err != nil {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return DefaultConfig(), fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Cache.Backend {
	case "", CacheBackendFile, CacheBackendRedis, CacheBackendNone:
	default:
		return fmt.Errorf("unknown cache backend %q (must be file, redis, or none)", c.Cache.Backend)
	}
	if c.Cache.Backend == CacheBackendRedis && c.Cache.RedisAddr == "" {
		return fmt.Errorf("cache backend redis requires redis_addr")
	}
	return nil
}

// LayoutOptions converts the config spacing overrides to layout options.
// Zero-valued fields fall through to the layout package defaults.
func (c *Config) LayoutOptions() layout.Options {
	return layout.Options{
		HorizontalSpacing: c.Layout.HorizontalSpacing,
		VerticalSpacing:   c.Layout.VerticalSpacing,
		BranchRowHeight:   c.Layout.BranchRowHeight,
	}
}

// configPath returns the config file path using XDG standard
// (~/.config/studyflow/config.toml).
func configPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}
