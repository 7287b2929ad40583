// Package config loads receiver settings from an optional TOML file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds every tunable of the receiver daemon.
type Config struct {
	IngestAddr    string        // TCP ingest listener
	HTTPAddr      string        // dashboard API listener
	MaxLogs       int           // ring capacity
	MarkersPath   string        // asset-map CSV location
	WebDir        string        // optional static dashboard dir, empty disables
	IdleTimeout   time.Duration // per-connection read deadline, zero disables
	AdminPassword string        // enables API auth when non-empty
}

const (
	defaultIngestAddr  = ":8089"
	defaultHTTPAddr    = ":5000"
	defaultMaxLogs     = 10000
	defaultMarkersPath = "data/markers.csv"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		IngestAddr:  defaultIngestAddr,
		HTTPAddr:    defaultHTTPAddr,
		MaxLogs:     defaultMaxLogs,
		MarkersPath: defaultMarkersPath,
	}
}

// Load parses the TOML file at path over the defaults. An empty path means
// no file: the defaults are returned as-is. A non-empty path must exist.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}

	var raw struct {
		IngestAddr    string `toml:"ingest_addr"`
		HTTPAddr      string `toml:"http_addr"`
		MaxLogs       int    `toml:"max_logs"`
		MarkersPath   string `toml:"markers_path"`
		WebDir        string `toml:"web_dir"`
		IdleTimeout   string `toml:"idle_timeout"`
		AdminPassword string `toml:"admin_password"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.IngestAddr); v != "" {
		cfg.IngestAddr = v
	}
	if v := strings.TrimSpace(raw.HTTPAddr); v != "" {
		cfg.HTTPAddr = v
	}
	if raw.MaxLogs != 0 {
		cfg.MaxLogs = raw.MaxLogs
	}
	if v := strings.TrimSpace(raw.MarkersPath); v != "" {
		cfg.MarkersPath = v
	}
	cfg.WebDir = strings.TrimSpace(raw.WebDir)
	cfg.AdminPassword = raw.AdminPassword

	if v := strings.TrimSpace(raw.IdleTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse idle_timeout: %w", err)
		}
		cfg.IdleTimeout = d
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the daemon cannot run with.
func (c Config) Validate() error {
	if c.MaxLogs <= 0 {
		return fmt.Errorf("max_logs must be positive, got %d", c.MaxLogs)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("idle_timeout must not be negative, got %v", c.IdleTimeout)
	}
	if strings.TrimSpace(c.IngestAddr) == "" {
		return fmt.Errorf("ingest_addr must not be empty")
	}
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return fmt.Errorf("http_addr must not be empty")
	}
	return nil
}
