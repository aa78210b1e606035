package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

type prefixView struct {
	Prefix   string `yaml:"prefix"`
	Duration string `yaml:"duration"`
}

// fileView mirrors File with durations rendered as strings, so the output
// can be fed back to Load.
type fileView struct {
	MaxConcurrent     int          `yaml:"max_concurrent"`
	CriticalPrefixes  []string     `yaml:"critical_prefixes,omitempty"`
	Intervals         []prefixView `yaml:"intervals,omitempty"`
	DefaultInterval   string       `yaml:"default_interval"`
	TTLs              []prefixView `yaml:"ttls,omitempty"`
	DefaultTTL        string       `yaml:"default_ttl"`
	MaxCacheEntries   int          `yaml:"max_cache_entries"`
	AuthPrefixes      []string     `yaml:"auth_prefixes,omitempty"`
	MaxRetryAttempts  int          `yaml:"max_retry_attempts"`
	BaseBackoff       string       `yaml:"base_backoff"`
	MaxBackoff        string       `yaml:"max_backoff"`
	RespectRetryAfter bool         `yaml:"respect_retry_after"`

	BaseURL   string `yaml:"base_url,omitempty"`
	Timeout   string `yaml:"timeout"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	Metrics struct {
		Addr string `yaml:"addr,omitempty"`
		Path string `yaml:"path"`
	} `yaml:"metrics"`
	Redis struct {
		Addr   string `yaml:"addr,omitempty"`
		DB     int    `yaml:"db"`
		Prefix string `yaml:"prefix"`
		TTL    string `yaml:"ttl"`
	} `yaml:"redis"`
	Logging struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"logging"`
}

func dur(d time.Duration) string {
	return d.String()
}

// Dump renders f as YAML. The Redis password is never written.
func Dump(f *File) ([]byte, error) {
	view := fileView{
		MaxConcurrent:     f.MaxConcurrent,
		CriticalPrefixes:  f.CriticalPrefixes,
		DefaultInterval:   dur(f.DefaultInterval),
		DefaultTTL:        dur(f.DefaultTTL),
		MaxCacheEntries:   f.MaxCacheEntries,
		AuthPrefixes:      f.AuthPrefixes,
		MaxRetryAttempts:  f.MaxRetryAttempts,
		BaseBackoff:       dur(f.BaseBackoff),
		MaxBackoff:        dur(f.MaxBackoff),
		RespectRetryAfter: f.RespectRetryAfter,
		BaseURL:           f.BaseURL,
		Timeout:           dur(f.Timeout),
	}
	for _, e := range f.IntervalTable {
		view.Intervals = append(view.Intervals, prefixView{Prefix: e.Prefix, Duration: dur(e.Duration)})
	}
	for _, e := range f.TTLTable {
		view.TTLs = append(view.TTLs, prefixView{Prefix: e.Prefix, Duration: dur(e.Duration)})
	}
	view.RateLimit.RPS = f.RateLimit.RPS
	view.RateLimit.Burst = f.RateLimit.Burst
	view.Metrics.Addr = f.Metrics.Addr
	view.Metrics.Path = f.Metrics.Path
	view.Redis.Addr = f.Redis.Addr
	view.Redis.DB = f.Redis.DB
	view.Redis.Prefix = f.Redis.Prefix
	view.Redis.TTL = dur(f.Redis.TTL)
	view.Logging.Level = f.Logging.Level
	view.Logging.Development = f.Logging.Development

	out, err := yaml.Marshal(view)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return out, nil
}
