// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fiverow Contributors

// Package config loads server configuration from an optional YAML file
// layered under command-line flags. Secrets (database URL, JWT secret) come
// from the environment only and never from files or flags.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/fiverow/fiverow/internal/xdg"
)

// Default values for server flags.
const (
	DefaultListenAddr      = ":8080"
	DefaultMetricsAddr     = "127.0.0.1:9100"
	DefaultLogFormat       = "json"
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
	DefaultSweepInterval   = 10 * time.Minute
)

// Config holds everything the server needs to start.
type Config struct {
	ListenAddr  string        `koanf:"listen-addr"`
	MetricsAddr string        `koanf:"metrics-addr"`
	LogFormat   string        `koanf:"log-format"`
	AccessTTL   time.Duration `koanf:"access-token-ttl"`
	RefreshTTL  time.Duration `koanf:"refresh-token-ttl"`
	SweepEvery  time.Duration `koanf:"session-sweep-interval"`

	// Environment-only secrets.
	DatabaseURL string `koanf:"-"`
	JWTSecret   string `koanf:"-"`
}

// RegisterFlags declares the server's flags on fs with their defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("listen-addr", DefaultListenAddr, "HTTP listen address")
	fs.String("metrics-addr", DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.String("log-format", DefaultLogFormat, "log format (json or text)")
	fs.Duration("access-token-ttl", DefaultAccessTokenTTL, "access token lifetime")
	fs.Duration("refresh-token-ttl", DefaultRefreshTokenTTL, "refresh token lifetime")
	fs.Duration("session-sweep-interval", DefaultSweepInterval, "how often expired sessions are purged")
	fs.String("config", "", "path to YAML config file")
}

// Load builds a Config from the optional YAML file named by the --config
// flag, overridden by explicitly-set flags, plus the DATABASE_URL and
// JWT_SECRET environment variables. When --config is not given, the XDG
// config directory is searched for a config.yaml.
func Load(fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	path, _ := fs.GetString("config")
	if path == "" {
		path = xdg.DefaultConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Flags set on the command line win over the file; unset flags
	// contribute their defaults only where the file is silent.
	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return nil, fmt.Errorf("load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.JWTSecret = os.Getenv("JWT_SECRET")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is complete and coherent. Secrets
// are checked here so a misconfigured deployment fails at startup, not at
// first login.
func (cfg *Config) Validate() error {
	if cfg.ListenAddr == "" {
		return fmt.Errorf("listen-addr is required")
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return fmt.Errorf("log-format must be 'json' or 'text', got %q", cfg.LogFormat)
	}
	if cfg.AccessTTL <= 0 {
		return fmt.Errorf("access-token-ttl must be positive")
	}
	if cfg.RefreshTTL <= 0 {
		return fmt.Errorf("refresh-token-ttl must be positive")
	}
	if cfg.SweepEvery <= 0 {
		return fmt.Errorf("session-sweep-interval must be positive")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	return nil
}
