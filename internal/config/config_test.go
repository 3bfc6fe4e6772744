package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/raaihank/anonimizador/internal/blob"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	if err := Validate(GetDefaults()); err != nil {
		t.Fatalf("Defaults failed validation: %v", err)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Workflow.Language != "es" || cfg.Blob.Backend != blob.BackendMemory {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
logging:
  level: debug
  format: console
workflow:
  language: en
blob:
  backend: redis
  ttl: 30s
  redis:
    url: redis://cache:6379/1
security:
  rate_limit:
    requests_per_min: 10
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Workflow.Language != "en" || cfg.Workflow.Filename != "datos.json" {
		t.Errorf("Workflow = %+v", cfg.Workflow)
	}
	if cfg.Blob.Backend != blob.BackendRedis || cfg.Blob.TTL != 30*time.Second {
		t.Errorf("Blob = %+v", cfg.Blob)
	}
	if cfg.Blob.Redis.URL != "redis://cache:6379/1" || cfg.Blob.Redis.KeyPrefix != "anonimizador:blob:" {
		t.Errorf("Redis = %+v", cfg.Blob.Redis)
	}
	if cfg.Security.RateLimit.RequestsPerMin != 10 || !cfg.Security.RateLimit.Enabled {
		t.Errorf("RateLimit = %+v", cfg.Security.RateLimit)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ANONIMIZADOR_SERVER_PORT", "9191")
	t.Setenv("ANONIMIZADOR_WORKFLOW_LANGUAGE", "en")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("Port = %d, want 9191", cfg.Server.Port)
	}
	if cfg.Workflow.Language != "en" {
		t.Errorf("Language = %s, want en", cfg.Workflow.Language)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"port", func(c *Config) { c.Server.Port = 70000 }, "Server.Port"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "Logging.Level"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "Logging.Format"},
		{"language", func(c *Config) { c.Workflow.Language = "fr" }, "Workflow.Language"},
		{"filename with slash", func(c *Config) { c.Workflow.Filename = "a/b.json" }, "Workflow.Filename"},
		{"empty filename", func(c *Config) { c.Workflow.Filename = "" }, "Workflow.Filename"},
		{"backend", func(c *Config) { c.Blob.Backend = "etcd" }, "Blob.Backend"},
		{"ttl", func(c *Config) { c.Blob.TTL = 0 }, "Blob.TTL"},
		{"log file path", func(c *Config) { c.Logging.File.Enabled = true; c.Logging.File.Path = "" }, "Logging.File.Path"},
		{"redis url", func(c *Config) { c.Blob.Backend = blob.BackendRedis; c.Blob.Redis.URL = "" }, "blob.redis.url"},
		{"postgres url", func(c *Config) { c.Blob.Backend = blob.BackendPostgres; c.Blob.Postgres.DatabaseURL = "" }, "blob.postgres.database_url"},
		{"websocket path", func(c *Config) { c.WebSocket.Path = "ws" }, "websocket path"},
		{"etl format", func(c *Config) { c.ETL.OutputFormat = "xml" }, "ETL.OutputFormat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaults()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("Error %q does not mention %s", err, tt.field)
			}
		})
	}
}

func TestWatch(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: info\n")

	changes := make(chan *Config, 4)
	w, err := Watch(path, func(c *Config) { changes <- c }, nil)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if w.ConfigFile() != path {
		t.Errorf("ConfigFile = %s, want %s", w.ConfigFile(), path)
	}

	// Give the watcher a moment to register before editing
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-changes:
			if c.Logging.Level == "debug" {
				return
			}
		case <-deadline:
			t.Fatal("Config change was not observed")
		}
	}
}
