// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration, loaded from a single YAML file.
// There is no discovery or layering: one file, flag-overridable path,
// explicit values.
type Config struct {
	// Listen is the address the HTTP server binds.
	Listen string `yaml:"listen"`

	// DatabasePath is the SQLite database file. The parent directory
	// must exist.
	DatabasePath string `yaml:"database_path"`

	// PoolSize is the SQLite connection pool size. Zero means the
	// pool default.
	PoolSize int `yaml:"pool_size"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// defaultConfig returns the configuration used when no config file is
// given.
func defaultConfig() Config {
	return Config{
		Listen:       "127.0.0.1:8080",
		DatabasePath: "signet.db",
		LogLevel:     "info",
	}
}

// loadConfig reads and validates the YAML config at path. An empty
// path returns the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Listen == "" {
		return Config{}, fmt.Errorf("config %s: listen is required", path)
	}
	if cfg.DatabasePath == "" {
		return Config{}, fmt.Errorf("config %s: database_path is required", path)
	}
	if _, err := parseLogLevel(cfg.LogLevel); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

// parseLogLevel maps the config string to a slog level.
func parseLogLevel(level string) (slog.Level, error) {
	switch level {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", level)
}
