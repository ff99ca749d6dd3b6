// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskhive Contributors

// Package config loads and validates process configuration.
package config

import (
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config is the process-wide configuration, populated from defaults,
// then an optional YAML file, then command-line flags.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	Auth     AuthConfig     `koanf:"auth"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Log      LogConfig      `koanf:"log"`
}

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// RedisConfig holds session store settings.
type RedisConfig struct {
	URL string `koanf:"url"`
}

// AuthConfig holds token and lifetime settings.
type AuthConfig struct {
	TokenSecret   string        `koanf:"token_secret"`
	SessionTTL    time.Duration `koanf:"session_ttl"`
	OTPTTL        time.Duration `koanf:"otp_ttl"`
	ResetTokenTTL time.Duration `koanf:"reset_token_ttl"`
}

// MetricsConfig holds the observability listen address.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Format string `koanf:"format"`
}

// Defaults applied before any file or flag values.
var defaults = map[string]any{
	"redis.url":            "redis://localhost:6379/0",
	"auth.session_ttl":     "24h",
	"auth.otp_ttl":         "10m",
	"auth.reset_token_ttl": "15m",
	"metrics.addr":         "127.0.0.1:9100",
	"log.format":           "json",
}

// Load builds a Config from defaults, an optional YAML file, and the
// given flag set. path may be empty; flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("key", key).Wrap(err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("operation", "load flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "unmarshal").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required")
	}
	if c.Redis.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("redis.url is required")
	}
	if c.Auth.TokenSecret == "" {
		return oops.Code("CONFIG_INVALID").Errorf("auth.token_secret is required")
	}
	if c.Auth.SessionTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("auth.session_ttl must be positive")
	}
	if c.Auth.OTPTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("auth.otp_ttl must be positive")
	}
	if c.Auth.ResetTokenTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("auth.reset_token_ttl must be positive")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").
			With("format", c.Log.Format).
			Errorf("log.format must be 'json' or 'text'")
	}
	return nil
}
