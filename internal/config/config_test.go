package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{"SERVER_URL", "USERNAME", "PASSWORD", "DB_PATH", "LOG_PATH", "LOG_LEVEL", "TIMEOUT", "REQUESTS_PER_SECOND"} {
		t.Setenv(EnvPrefix+"_"+key, "")
	}
}

func validConfig() Config {
	return Config{
		ServerURL: "http://localhost:9995",
		Username:  "eike",
		Password:  "secret",
		DBPath:    "sitebag.db",
		LogLevel:  "info",
		Timeout:   time.Second,
	}
}

func TestLoad_EnvUsesDefaults(t *testing.T) {
	isolate(t)
	t.Setenv("SITEBAG_USERNAME", "eike")
	t.Setenv("SITEBAG_PASSWORD", "secret")

	cfg, err := Load(NewViper(), "")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.ServerURL != defaultServerURL {
		t.Fatalf("unexpected server URL: %s", cfg.ServerURL)
	}
	if cfg.DBPath != defaultDBPath {
		t.Fatalf("unexpected DB path: %s", cfg.DBPath)
	}
	if cfg.LogLevel != "info" || cfg.Timeout != defaultTimeout || cfg.RequestsPerSecond != 0 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("SITEBAG_USERNAME", "eike")
	t.Setenv("SITEBAG_PASSWORD", "secret")
	t.Setenv("SITEBAG_SERVER_URL", "https://bag.example.com")
	t.Setenv("SITEBAG_TIMEOUT", "3s")
	t.Setenv("SITEBAG_LOG_LEVEL", "DEBUG")
	t.Setenv("SITEBAG_REQUESTS_PER_SECOND", "2.5")

	cfg, err := Load(NewViper(), "")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ServerURL != "https://bag.example.com" || cfg.Timeout != 3*time.Second {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.LogLevel != "debug" || cfg.RequestsPerSecond != 2.5 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoad_EnvMissingUsername(t *testing.T) {
	isolate(t)
	t.Setenv("SITEBAG_PASSWORD", "secret")

	if _, err := Load(NewViper(), ""); err == nil {
		t.Fatal("expected error for missing username")
	}
}

func TestLoad_ReadsFileAndEnvWins(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "server_url: https://file.example.com\nusername: fromfile\npassword: pw\ndb_path: /tmp/bag.db\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SITEBAG_USERNAME", "fromenv")

	cfg, err := Load(NewViper(), path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ServerURL != "https://file.example.com" || cfg.DBPath != "/tmp/bag.db" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Username != "fromenv" {
		t.Fatalf("expected env to override file, got %q", cfg.Username)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)
	if _, err := Load(NewViper(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"trailing slash", func(c *Config) { c.ServerURL = "http://localhost:9995/" }},
		{"scheme", func(c *Config) { c.ServerURL = "localhost:9995" }},
		{"password", func(c *Config) { c.Password = "" }},
		{"db path", func(c *Config) { c.DBPath = "" }},
		{"log level", func(c *Config) { c.LogLevel = "trace" }},
		{"timeout", func(c *Config) { c.Timeout = 0 }},
		{"rate", func(c *Config) { c.RequestsPerSecond = -1 }},
	}
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
