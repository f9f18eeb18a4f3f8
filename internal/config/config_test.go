package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-sync
server:
  host: 127.0.0.1
  port: 8000
limits:
  max_text_size: 2048
  max_connections: 5
  max_buffers: 3
storage:
  dir: /var/lib/textsync
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-sync" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-sync")
	}
	if cfg.Server.Addr() != "127.0.0.1:8000" {
		t.Errorf("Server.Addr() = %q, want %q", cfg.Server.Addr(), "127.0.0.1:8000")
	}
	if cfg.Limits.MaxTextSize != 2048 {
		t.Errorf("Limits.MaxTextSize = %d, want 2048", cfg.Limits.MaxTextSize)
	}
	if cfg.Limits.MaxConnections != 5 {
		t.Errorf("Limits.MaxConnections = %d, want 5", cfg.Limits.MaxConnections)
	}
	if cfg.Storage.Dir != "/var/lib/textsync" {
		t.Errorf("Storage.Dir = %q, want %q", cfg.Storage.Dir, "/var/lib/textsync")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
storage:
  backend: postgres
database:
  host: localhost
  name: textsync
  user: textsync
  password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Password != "secret123" {
		t.Errorf("Database.Password = %q, want %q", cfg.Database.Password, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: test-sync
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.Limits.MaxTextSize != DefaultMaxTextSize {
		t.Errorf("Limits.MaxTextSize = %d, want default %d", cfg.Limits.MaxTextSize, DefaultMaxTextSize)
	}
	if cfg.Limits.MaxConnections != DefaultMaxConnections {
		t.Errorf("Limits.MaxConnections = %d, want default %d", cfg.Limits.MaxConnections, DefaultMaxConnections)
	}
	if cfg.Limits.MaxBuffers != DefaultMaxBuffers {
		t.Errorf("Limits.MaxBuffers = %d, want default %d", cfg.Limits.MaxBuffers, DefaultMaxBuffers)
	}
	if cfg.Storage.Mode != ModeNotebooks {
		t.Errorf("Storage.Mode = %q, want default %q", cfg.Storage.Mode, ModeNotebooks)
	}
	if cfg.Storage.Backend != BackendFile {
		t.Errorf("Storage.Backend = %q, want default %q", cfg.Storage.Backend, BackendFile)
	}
	if cfg.Server.PongWait != DefaultPongWait {
		t.Errorf("Server.PongWait = %v, want default %v", cfg.Server.PongWait, DefaultPongWait)
	}
	if cfg.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Metrics.Port = %d, want default %d", cfg.Metrics.Port, DefaultMetricsPort)
	}
}

func TestLoadWithDefaults_SingleModeCapsBuffers(t *testing.T) {
	yaml := `
limits:
  max_buffers: 7
storage:
  mode: single
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}
	if cfg.Limits.MaxBuffers != 1 {
		t.Errorf("Limits.MaxBuffers = %d, want 1 in single mode", cfg.Limits.MaxBuffers)
	}
}

func TestLoadAndValidate_EmptyPath(t *testing.T) {
	cfg, err := LoadAndValidate("")
	if err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want default %d", cfg.Server.Port, DefaultPort)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		return *cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing instance id",
			mutate:  func(c *Config) { c.Instance.ID = "" },
			wantErr: "instance.id is required",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "server.port must be between 1 and 65535, got 70000",
		},
		{
			name: "ping interval not below pong wait",
			mutate: func(c *Config) {
				c.Server.PingInterval = time.Minute
				c.Server.PongWait = time.Minute
			},
			wantErr: "server.ping_interval (1m0s) must be less than server.pong_wait (1m0s)",
		},
		{
			name:    "zero text size",
			mutate:  func(c *Config) { c.Limits.MaxTextSize = 0 },
			wantErr: "limits.max_text_size must be >= 1",
		},
		{
			name:    "negative connections",
			mutate:  func(c *Config) { c.Limits.MaxConnections = -1 },
			wantErr: "limits.max_connections must be >= 1",
		},
		{
			name:    "unknown mode",
			mutate:  func(c *Config) { c.Storage.Mode = "shared" },
			wantErr: `storage.mode must be "notebooks" or "single", got "shared"`,
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Storage.Backend = "s3" },
			wantErr: `storage.backend must be "file" or "postgres", got "s3"`,
		},
		{
			name:    "postgres backend missing host",
			mutate:  func(c *Config) { c.Storage.Backend = BackendPostgres },
			wantErr: "database.host is required",
		},
		{
			name: "min_conns exceeds max_conns",
			mutate: func(c *Config) {
				c.Storage.Backend = BackendPostgres
				c.Database = DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 5, MinConns: 10}
			},
			wantErr: "database.min_conns (10) cannot exceed max_conns (5)",
		},
		{
			name:    "metrics port collides",
			mutate:  func(c *Config) { c.Metrics.Port = c.Server.Port },
			wantErr: "metrics.port cannot equal server.port (5000)",
		},
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	if err != nil {
		t.Fatalf("ParseLevel failed: %v", err)
	}
	if level != slog.LevelDebug {
		t.Errorf("level = %v, want %v", level, slog.LevelDebug)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLoadAndValidate_SampleConfig(t *testing.T) {
	cfg, err := LoadAndValidate(filepath.Join("..", "..", "configs", "textsync.yaml"))
	if err != nil {
		t.Fatalf("sample config invalid: %v", err)
	}
	if cfg.Storage.Mode != ModeNotebooks || cfg.Storage.Backend != BackendFile {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if !cfg.Storage.Restore {
		t.Error("sample config should restore notebooks")
	}
}
