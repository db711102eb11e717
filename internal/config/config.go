// Package config loads simulator configuration from a YAML file with
// PREVIEWKIT_-prefixed environment overrides layered on top.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full simulator configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Themes      ThemesConfig      `mapstructure:"themes"`
	Store       StoreConfig       `mapstructure:"store"`
	Preview     PreviewConfig     `mapstructure:"preview"`
	Development DevelopmentConfig `mapstructure:"development"`
	Log         LogConfig         `mapstructure:"log"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// ThemesConfig locates theme packages on disk.
type ThemesConfig struct {
	Root string `mapstructure:"root"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	// Driver is "memory" or "sqlite".
	Driver string `mapstructure:"driver"`
	// Path is the sqlite database file; ignored for memory.
	Path string `mapstructure:"path"`
	// Fixtures is an optional YAML bundle loaded at startup.
	Fixtures string `mapstructure:"fixtures"`
}

// PreviewConfig tunes the render pipeline.
type PreviewConfig struct {
	DefaultTenant   string `mapstructure:"default_tenant"`
	DefaultViewport string `mapstructure:"default_viewport"`
	// SeedCooldownSeconds spaces per-tenant minimum-data backfills.
	SeedCooldownSeconds int `mapstructure:"seed_cooldown_seconds"`
	// MetricsWindow bounds the rolling latency buffer.
	MetricsWindow int `mapstructure:"metrics_window"`
	// CacheEntries bounds the compiled-template cache.
	CacheEntries int64 `mapstructure:"cache_entries"`
}

// DevelopmentConfig controls local-iteration features.
type DevelopmentConfig struct {
	LiveReload bool `mapstructure:"live_reload"`
	Watch      bool `mapstructure:"watch"`
	// DebounceMS groups rapid theme-file changes.
	DebounceMS int `mapstructure:"debounce_ms"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text or json
}

const envPrefix = "PREVIEWKIT"

// Load reads configuration from the given file (optional) and the
// environment, over built-in defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 4000)
	v.SetDefault("themes.root", "./themes")
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.path", "previewkit.db")
	v.SetDefault("preview.default_tenant", "demo")
	v.SetDefault("preview.default_viewport", "desktop")
	v.SetDefault("preview.seed_cooldown_seconds", 30)
	v.SetDefault("preview.metrics_window", 512)
	v.SetDefault("preview.cache_entries", 1024)
	v.SetDefault("development.live_reload", true)
	v.SetDefault("development.watch", true)
	v.SetDefault("development.debounce_ms", 300)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func (c *Config) validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Store.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("store.driver %q not supported (memory, sqlite)", c.Store.Driver)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q not supported (text, json)", c.Log.Format)
	}
	return nil
}
