package config

import "time"

// LogConfig holds logging configuration, unchanged in shape from the
// CLI/daemon split this was adapted from: level/format/output plus
// lumberjack rotation knobs.
type LogConfig struct {
	Level        string `mapstructure:"level"`         // debug, info, warn, error
	Format       string `mapstructure:"format"`        // text, json, pretty
	Output       string `mapstructure:"output"`        // stdout, stderr, or file path
	FilePath     string `mapstructure:"file_path"`     // path to log file (in addition to output)
	MaxSizeMB    int    `mapstructure:"max_size_mb"`   // max size in MB before rotation
	MaxBackups   int    `mapstructure:"max_backups"`   // max number of old log files to keep
	MaxAgeDays   int    `mapstructure:"max_age_days"`  // max days to retain old log files
	EnableCaller bool   `mapstructure:"enable_caller"` // include source file/line in logs
	NoColor      bool   `mapstructure:"no_color"`      // accepted but not applied; pretty output colour is not switched off by it

	// RedactFields names attribute keys (matched case-insensitively, by
	// substring) scrubbed from every log record, useful for keeping job
	// args or connection strings logged by log_queries out of plaintext
	// logs.
	RedactFields []string `mapstructure:"redact_fields"`

	// AuditPath enables audit logging when non-empty: migrate up/down runs
	// and command completions are appended as JSON lines to this file,
	// independent of and retained longer than the operational log above.
	AuditPath       string `mapstructure:"audit_path"`
	AuditMaxAgeDays int    `mapstructure:"audit_max_age_days"`
}

// DatabaseConfig holds the connection and pool settings §6 of the
// framework's configuration contract recognizes (log_queries lives on
// Config itself).
type DatabaseConfig struct {
	URL             string `mapstructure:"url"`
	User            string `mapstructure:"user"`
	Name            string `mapstructure:"name"`
	PoolSize        int    `mapstructure:"pool_size"`
	IdleTimeoutSec  int    `mapstructure:"idle_timeout"`
	CheckoutTimeout int    `mapstructure:"checkout_timeout"`
}

// IdleTimeout and CheckoutTimeout as time.Duration convenience accessors.
func (d DatabaseConfig) IdleTimeout() time.Duration {
	return time.Duration(d.IdleTimeoutSec) * time.Second
}

func (d DatabaseConfig) CheckoutTimeoutDuration() time.Duration {
	return time.Duration(d.CheckoutTimeout) * time.Second
}

// WorkerConfig controls the background job worker's startup behavior.
type WorkerConfig struct {
	Concurrency        int    `mapstructure:"concurrency"`
	MigrationsDir      string `mapstructure:"migrations_dir"`
	TriggerTokenSecret string `mapstructure:"trigger_token_secret"`
}

// Config is the complete top-level configuration for any binary built on
// this core: the worker process, a migration CLI, or an embedding HTTP
// server.
type Config struct {
	Log        LogConfig      `mapstructure:"log"`
	Database   DatabaseConfig `mapstructure:"database"`
	LogQueries bool           `mapstructure:"log_queries"`
	Worker     WorkerConfig   `mapstructure:"worker"`
}

// Default returns the documented defaults: pool size 10, idle timeout 1
// hour, checkout timeout 5 seconds.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Database: DatabaseConfig{
			PoolSize:        10,
			IdleTimeoutSec:  3600,
			CheckoutTimeout: 5,
		},
		LogQueries: false,
		Worker: WorkerConfig{
			Concurrency:   1,
			MigrationsDir: "migrations",
		},
	}
}
