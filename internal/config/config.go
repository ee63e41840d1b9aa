// Seraph Six - Destiny 2 Clan Activity Tracker
// Copyright 2026 henworth
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/henworth/seraphsix

// Package config loads and validates runtime configuration from layered
// sources: struct defaults, an optional YAML file, then environment
// variables. Precedence: env > file > defaults.
package config

import (
	"fmt"
	"time"
)

// Config is the complete runtime configuration.
type Config struct {
	Bungie    BungieConfig    `koanf:"bungie"`
	Database  DatabaseConfig  `koanf:"database"`
	Jobs      JobsConfig      `koanf:"jobs"`
	Reconcile ReconcileConfig `koanf:"reconcile"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// BungieConfig configures the Bungie.net API client.
type BungieConfig struct {
	// APIKey is the X-API-Key header value. Required.
	APIKey string `koanf:"api_key"`

	// BaseURL overrides the platform endpoint, primarily for tests.
	BaseURL string `koanf:"base_url"`

	// RequestsPerSecond and Burst tune the client-side rate limiter.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`

	// MaxElapsed caps the retry backoff wall clock per call.
	MaxElapsed time.Duration `koanf:"max_elapsed"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	// DSN is the lib/pq connection string. Required.
	DSN string `koanf:"dsn"`
}

// JobsConfig configures the dispatch layer.
type JobsConfig struct {
	Workers    int           `koanf:"workers"`
	Buffer     int64         `koanf:"buffer"`
	PendingTTL time.Duration `koanf:"pending_ttl"`

	// DataDir is the BadgerDB directory backing the pending-key set.
	// Empty selects the in-memory set (dedup does not survive restarts).
	DataDir string `koanf:"data_dir"`
}

// ReconcileConfig configures the reconciliation engine.
type ReconcileConfig struct {
	// Interval is the period between scheduled clan reconciliations.
	Interval time.Duration `koanf:"interval"`

	// HistoryCount is the per-character, per-mode activity page size.
	HistoryCount int `koanf:"history_count"`

	// ScanConcurrency bounds concurrent member scans within one clan.
	ScanConcurrency int `koanf:"scan_concurrency"`

	// CacheTTL is the roster-cache expiration backstop.
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// ServerConfig configures the HTTP read surface.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig configures the zerolog pipeline.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for consistency. Required fields and
// range checks only; anything tunable has a default.
func (c *Config) Validate() error {
	if err := c.validateBungie(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateBungie() error {
	if c.Bungie.APIKey == "" {
		return fmt.Errorf("bungie.api_key is required")
	}
	if c.Bungie.RequestsPerSecond <= 0 {
		return fmt.Errorf("bungie.requests_per_second must be positive, got %v", c.Bungie.RequestsPerSecond)
	}
	if c.Bungie.MaxElapsed <= 0 {
		return fmt.Errorf("bungie.max_elapsed must be positive, got %v", c.Bungie.MaxElapsed)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("logging.level %q is not a known level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
