// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/henworth/seraphsix/internal/bungie"
)

// DefaultConfigPaths lists where config files are searched, first hit wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/seraphsix/config.yaml",
	"/etc/seraphsix/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults, applied before file and env
// layers.
func defaultConfig() *Config {
	return &Config{
		Bungie: BungieConfig{
			APIKey:            "",
			BaseURL:           bungie.DefaultBaseURL,
			RequestsPerSecond: 20,
			Burst:             5,
			MaxElapsed:        60 * time.Second,
		},
		Database: DatabaseConfig{
			DSN: "",
		},
		Jobs: JobsConfig{
			Workers:    4,
			Buffer:     64,
			PendingTTL: 15 * time.Minute,
			DataDir:    "",
		},
		Reconcile: ReconcileConfig{
			Interval:        time.Hour,
			HistoryCount:    10,
			ScanConcurrency: 4,
			CacheTTL:        5 * time.Minute,
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration with layered sources:
//  1. built-in defaults
//  2. optional YAML config file
//  3. environment variables (highest priority)
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first config file that exists, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps flat environment variable names to koanf paths.
// BUNGIE_API_KEY -> bungie.api_key, DATABASE_URL -> database.dsn.
var envMappings = map[string]string{
	"bungie_api_key":             "bungie.api_key",
	"bungie_base_url":            "bungie.base_url",
	"bungie_requests_per_second": "bungie.requests_per_second",
	"bungie_burst":               "bungie.burst",
	"bungie_max_elapsed":         "bungie.max_elapsed",

	"database_url": "database.dsn",
	"database_dsn": "database.dsn",

	"jobs_workers":     "jobs.workers",
	"jobs_buffer":      "jobs.buffer",
	"jobs_pending_ttl": "jobs.pending_ttl",
	"jobs_data_dir":    "jobs.data_dir",

	"reconcile_interval":         "reconcile.interval",
	"reconcile_history_count":    "reconcile.history_count",
	"reconcile_scan_concurrency": "reconcile.scan_concurrency",
	"reconcile_cache_ttl":        "reconcile.cache_ttl",

	"http_host":    "server.host",
	"http_port":    "server.port",
	"http_timeout": "server.timeout",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps environment variable names to config paths.
// Unmapped variables are dropped so unrelated process environment never
// leaks into the configuration tree.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
