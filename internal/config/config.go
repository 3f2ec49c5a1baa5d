// Package config provides configuration types and defaults for cmdgate.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/zjrosen/cmdgate/internal/history"
	"github.com/zjrosen/cmdgate/internal/log"
	"github.com/zjrosen/cmdgate/internal/tracing"
)

// Config holds all configuration options for cmdgate.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Commands  CommandsConfig  `mapstructure:"commands"`
	Heartbeat HeartbeatConfig `mapstructure:"heartbeat"`
	History   HistoryConfig   `mapstructure:"history"`
	Watcher   WatcherConfig   `mapstructure:"watcher"`
	Tracing   tracing.Config  `mapstructure:"tracing"`
}

// LogConfig controls the debug log file.
type LogConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Level   string `mapstructure:"level"` // debug, info, warn, error
}

// CommandsConfig holds defaults applied to every command.
type CommandsConfig struct {
	// Fallback is the value a bound predicate reports when its source cannot
	// be read.
	Fallback bool `mapstructure:"fallback"`

	// MaxConcurrency caps how many actions run at once. 0 means unbounded.
	MaxConcurrency int `mapstructure:"max_concurrency"`
}

// HeartbeatConfig controls the periodic re-check of every command.
type HeartbeatConfig struct {
	// Interval between heartbeats. 0 disables the pump; the heartbeat can
	// still be fired by hand.
	Interval time.Duration `mapstructure:"interval"`
}

// HistoryConfig controls the run journal.
type HistoryConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	Limit           int           `mapstructure:"limit"`
}

// WatcherConfig points the lock file command at a file.
type WatcherConfig struct {
	Path     string        `mapstructure:"path"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// Defaults returns the default configuration.
func Defaults() Config {
	tc := tracing.DefaultConfig()
	tc.FilePath = DefaultTracesFilePath()

	return Config{
		Log: LogConfig{
			Enabled: false,
			Path:    "debug.log",
			Level:   "debug",
		},
		Commands: CommandsConfig{
			Fallback:       false,
			MaxConcurrency: 0,
		},
		Heartbeat: HeartbeatConfig{
			Interval: 0,
		},
		History: HistoryConfig{
			TTL:             history.DefaultTTL,
			CleanupInterval: history.DefaultCleanupInterval,
			Limit:           history.DefaultLimit,
		},
		Watcher: WatcherConfig{
			Path:     "",
			Debounce: 200 * time.Millisecond,
		},
		Tracing: tc,
	}
}

// SetDefaults registers every default with v so partial config files and
// environment overrides merge over them.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("log.enabled", d.Log.Enabled)
	v.SetDefault("log.path", d.Log.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("commands.fallback", d.Commands.Fallback)
	v.SetDefault("commands.max_concurrency", d.Commands.MaxConcurrency)
	v.SetDefault("heartbeat.interval", d.Heartbeat.Interval)
	v.SetDefault("history.ttl", d.History.TTL)
	v.SetDefault("history.cleanup_interval", d.History.CleanupInterval)
	v.SetDefault("history.limit", d.History.Limit)
	v.SetDefault("watcher.path", d.Watcher.Path)
	v.SetDefault("watcher.debounce", d.Watcher.Debounce)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultTracesFilePath returns ~/.config/cmdgate/traces/traces.jsonl, or an
// empty string if the home directory is unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "cmdgate", "traces", "traces.jsonl")
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	switch c.Log.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	if c.Commands.MaxConcurrency < 0 {
		return fmt.Errorf("commands.max_concurrency must not be negative, got %d", c.Commands.MaxConcurrency)
	}
	if c.Heartbeat.Interval < 0 {
		return fmt.Errorf("heartbeat.interval must not be negative, got %s", c.Heartbeat.Interval)
	}
	if c.History.Limit < 0 {
		return fmt.Errorf("history.limit must not be negative, got %d", c.History.Limit)
	}
	if c.Watcher.Debounce < 0 {
		return fmt.Errorf("watcher.debounce must not be negative, got %s", c.Watcher.Debounce)
	}
	return ValidateTracing(c.Tracing)
}

// ValidateTracing checks tracing configuration for errors.
func ValidateTracing(t tracing.Config) error {
	if t.SampleRate < 0.0 || t.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", t.SampleRate)
	}

	switch t.Exporter {
	case "", "none", "file", "stdout", "otlp":
	default:
		return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", t.Exporter)
	}

	if t.Enabled {
		if t.Exporter == "file" && t.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if t.Exporter == "otlp" && t.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}
	return nil
}

// DefaultConfigTemplate returns the commented config file written on first run.
func DefaultConfigTemplate() string {
	return `# cmdgate configuration

log:
  # Write a debug log (also enabled by --debug)
  enabled: false
  path: debug.log
  # debug, info, warn, error
  level: debug

commands:
  # Value a bound predicate reports when its source cannot be read
  fallback: false
  # Maximum actions running at once (0 = unbounded)
  max_concurrency: 0

heartbeat:
  # Re-check every heartbeat-observing command this often (0 = manual only)
  interval: 0s

history:
  ttl: 10m
  cleanup_interval: 30m
  limit: 100

watcher:
  # Lock file gating the "lockfile" command (also set by --watch)
  path: ""
  debounce: 200ms

tracing:
  enabled: false
  # none, file, stdout, otlp
  exporter: file
  # file_path: ~/.config/cmdgate/traces/traces.jsonl
  otlp_endpoint: localhost:4317
  sample_rate: 1.0
  service_name: cmdgate
`
}

// WriteDefaultConfig creates a config file at configPath with default
// settings and comments, creating the parent directory if needed.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
