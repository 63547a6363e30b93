package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// AppName is the prefix used for environment variables (PGFRAME_DATABASE_URL,
// etc.) and the config file search paths below.
const AppName = "pgframe"

// configSearchPaths returns the paths to search for config files. Viper
// loads the config file from the first listed path that contains one.
func configSearchPaths(appName string) []string {
	var paths []string

	paths = append(paths, filepath.Join("/etc", appName))

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", appName))
	}

	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, cwd)
	}

	return paths
}

// UserConfigDir returns the user-specific config directory for the app.
func UserConfigDir(appName string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// newViper creates and configures a new Viper instance for the given app.
func newViper(appName string) *viper.Viper {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	for _, path := range configSearchPaths(appName) {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix(strings.ToUpper(appName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads configuration from cfgFile (if non-empty), the search paths,
// and the environment, layered over Default(). database.url or
// {database.user, database.name} resolve the connection string;
// env://NAME and file://path values anywhere in the tree are resolved to
// their referenced secret.
func Load(cfgFile string) (*Config, error) {
	v := newViper(AppName)

	defaults := Default()
	setViperDefaults(v, defaults)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := resolveSecrets(&cfg); err != nil {
		return nil, fmt.Errorf("failed to resolve secrets: %w", err)
	}

	return &cfg, nil
}

func setViperDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("log.format", c.Log.Format)
	v.SetDefault("log.output", c.Log.Output)
	v.SetDefault("log.max_size_mb", c.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", c.Log.MaxBackups)
	v.SetDefault("log.max_age_days", c.Log.MaxAgeDays)
	v.SetDefault("log.audit_path", c.Log.AuditPath)
	v.SetDefault("log.audit_max_age_days", c.Log.AuditMaxAgeDays)

	v.SetDefault("database.pool_size", c.Database.PoolSize)
	v.SetDefault("database.idle_timeout", c.Database.IdleTimeoutSec)
	v.SetDefault("database.checkout_timeout", c.Database.CheckoutTimeout)
	v.SetDefault("database.url", c.Database.URL)
	v.SetDefault("database.user", c.Database.User)
	v.SetDefault("database.name", c.Database.Name)

	v.SetDefault("log_queries", c.LogQueries)

	v.SetDefault("worker.concurrency", c.Worker.Concurrency)
	v.SetDefault("worker.migrations_dir", c.Worker.MigrationsDir)
}

// ConfigFileUsed returns the config file path that was loaded, if any.
func ConfigFileUsed(appName string) string {
	v := newViper(appName)
	_ = v.ReadInConfig()
	return v.ConfigFileUsed()
}

// DSN resolves the configured connection string: database.url if set,
// otherwise a DSN built from database.user and database.name.
func (c *Config) DSN() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return fmt.Sprintf("postgres://%s@localhost/%s", c.Database.User, c.Database.Name)
}
