// Package config loads antrian settings from a YAML file and ANTRIAN_*
// environment variables.
//
// Precedence, lowest first:
//  1. antrian.DefaultConfig and the CLI defaults below
//  2. the config file (explicit path, or antrian.yaml in . and $XDG_CONFIG_HOME/antrian)
//  3. environment variables, e.g. ANTRIAN_MAX_CONCURRENT or ANTRIAN_METRICS_ADDR
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/ambiyansyah-risyal/antrian"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ANTRIAN"

// File is the full configuration of the antrian CLI. The embedded
// antrian.Config is flattened to the top level of the file.
type File struct {
	antrian.Config `mapstructure:",squash"`

	BaseURL   string          `mapstructure:"base_url"`
	Timeout   time.Duration   `mapstructure:"timeout"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// RateLimitConfig is the optional global dispatch limit. RPS 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
	Path string `mapstructure:"path"`
}

// RedisConfig enables outcome recording in Redis when Addr is set.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// LoggingConfig selects the zap preset.
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	def := antrian.DefaultConfig()

	v.SetDefault("max_concurrent", def.MaxConcurrent)
	v.SetDefault("critical_prefixes", []string{})
	v.SetDefault("intervals", []map[string]any{})
	v.SetDefault("default_interval", def.DefaultInterval)
	v.SetDefault("ttls", []map[string]any{})
	v.SetDefault("default_ttl", def.DefaultTTL)
	v.SetDefault("max_cache_entries", def.MaxCacheEntries)
	v.SetDefault("auth_prefixes", def.AuthPrefixes)
	v.SetDefault("max_retry_attempts", def.MaxRetryAttempts)
	v.SetDefault("base_backoff", def.BaseBackoff)
	v.SetDefault("max_backoff", def.MaxBackoff)
	v.SetDefault("respect_retry_after", def.RespectRetryAfter)

	v.SetDefault("base_url", "")
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("rate_limit.rps", 0)
	v.SetDefault("rate_limit.burst", 1)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "antrian:outcomes")
	v.SetDefault("redis.ttl", 24*time.Hour)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
}

// Load reads the configuration. An empty path searches the default
// locations and tolerates a missing file; an explicit path must exist.
func Load(path string) (*File, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("antrian")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir := userConfigDir(); dir != "" {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &File{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Config.Validate(); err != nil {
		return nil, err
	}
	if cfg.RateLimit.RPS < 0 {
		return nil, fmt.Errorf("rate_limit.rps must be non-negative, got %v", cfg.RateLimit.RPS)
	}
	return cfg, nil
}

func userConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "antrian")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "antrian")
}

// Options translates the file into orchestrator options.
func (f *File) Options() []antrian.Option {
	opts := []antrian.Option{antrian.WithConfig(f.Config)}
	if f.BaseURL != "" {
		opts = append(opts, antrian.WithBaseURL(f.BaseURL))
	}
	if f.RateLimit.RPS > 0 {
		opts = append(opts, antrian.WithRateLimit(f.RateLimit.RPS, f.RateLimit.Burst))
	}
	return opts
}
