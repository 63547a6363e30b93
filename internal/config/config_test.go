package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	c := Default()
	if c.Log.Level != "info" || c.Log.Format != "text" || c.Log.Output != "stderr" {
		t.Errorf("Log defaults = %+v", c.Log)
	}
	if c.Database.PoolSize != 10 || c.Database.IdleTimeoutSec != 3600 || c.Database.CheckoutTimeout != 5 {
		t.Errorf("Database defaults = %+v", c.Database)
	}
	if c.LogQueries {
		t.Error("LogQueries should default to false")
	}
	if c.Worker.Concurrency != 1 || c.Worker.MigrationsDir != "migrations" {
		t.Errorf("Worker defaults = %+v", c.Worker)
	}
}

func TestDatabaseConfig_DurationAccessors(t *testing.T) {
	d := DatabaseConfig{IdleTimeoutSec: 120, CheckoutTimeout: 3}
	if got := d.IdleTimeout(); got.Seconds() != 120 {
		t.Errorf("IdleTimeout() = %v, want 120s", got)
	}
	if got := d.CheckoutTimeoutDuration(); got.Seconds() != 3 {
		t.Errorf("CheckoutTimeoutDuration() = %v, want 3s", got)
	}
}

func TestConfig_DSN_PrefersURL(t *testing.T) {
	c := &Config{Database: DatabaseConfig{URL: "postgres://explicit/dsn", User: "u", Name: "n"}}
	if got := c.DSN(); got != "postgres://explicit/dsn" {
		t.Errorf("DSN() = %q, want the explicit URL", got)
	}
}

func TestConfig_DSN_BuildsFromUserAndName(t *testing.T) {
	c := &Config{Database: DatabaseConfig{User: "alice", Name: "widgets_dev"}}
	want := "postgres://alice@localhost/widgets_dev"
	if got := c.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

func TestResolveSecrets_EnvPrefix(t *testing.T) {
	t.Setenv("PGFRAME_TEST_SECRET", "sssh")
	c := &Config{Database: DatabaseConfig{URL: "env://PGFRAME_TEST_SECRET"}}

	if err := resolveSecrets(c); err != nil {
		t.Fatalf("resolveSecrets() error = %v", err)
	}
	if c.Database.URL != "sssh" {
		t.Errorf("Database.URL = %q, want %q", c.Database.URL, "sssh")
	}
}

func TestResolveSecrets_EnvPrefixMissingVarErrors(t *testing.T) {
	c := &Config{Database: DatabaseConfig{URL: "env://PGFRAME_DOES_NOT_EXIST"}}
	if err := resolveSecrets(c); err == nil {
		t.Fatal("expected an error for an unset environment variable")
	}
}

func TestResolveSecrets_FilePrefix(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secret.txt")
	if err := os.WriteFile(path, []byte("file-secret\n"), 0o600); err != nil {
		t.Fatalf("writing secret file: %v", err)
	}

	c := &Config{Worker: WorkerConfig{TriggerTokenSecret: "file://" + path}}
	if err := resolveSecrets(c); err != nil {
		t.Fatalf("resolveSecrets() error = %v", err)
	}
	if c.Worker.TriggerTokenSecret != "file-secret" {
		t.Errorf("TriggerTokenSecret = %q, want trimmed file contents", c.Worker.TriggerTokenSecret)
	}
}

func TestResolveSecrets_FilePrefixMissingFileErrors(t *testing.T) {
	c := &Config{Worker: WorkerConfig{TriggerTokenSecret: "file:///does/not/exist"}}
	if err := resolveSecrets(c); err == nil {
		t.Fatal("expected an error for a missing secret file")
	}
}

func TestResolveSecrets_PlainValuesPassThrough(t *testing.T) {
	c := &Config{Database: DatabaseConfig{User: "plain-value"}}
	if err := resolveSecrets(c); err != nil {
		t.Fatalf("resolveSecrets() error = %v", err)
	}
	if c.Database.User != "plain-value" {
		t.Errorf("User = %q, want unchanged", c.Database.User)
	}
}
