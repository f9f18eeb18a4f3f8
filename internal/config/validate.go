package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.PingInterval >= c.Server.PongWait {
		return fmt.Errorf("server.ping_interval (%s) must be less than server.pong_wait (%s)",
			c.Server.PingInterval, c.Server.PongWait)
	}
	if c.Server.SendQueueSize < 1 {
		return errors.New("server.send_queue_size must be >= 1")
	}
	if c.Server.MaxQueueSize < c.Server.SendQueueSize {
		return fmt.Errorf("server.max_queue_size (%d) cannot be less than send_queue_size (%d)",
			c.Server.MaxQueueSize, c.Server.SendQueueSize)
	}

	if c.Limits.MaxTextSize < 1 {
		return errors.New("limits.max_text_size must be >= 1")
	}
	if c.Limits.MaxConnections < 1 {
		return errors.New("limits.max_connections must be >= 1")
	}
	if c.Limits.MaxBuffers < 1 {
		return errors.New("limits.max_buffers must be >= 1")
	}

	switch c.Storage.Mode {
	case ModeNotebooks, ModeSingle:
	default:
		return fmt.Errorf("storage.mode must be %q or %q, got %q", ModeNotebooks, ModeSingle, c.Storage.Mode)
	}
	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.Dir == "" {
			return errors.New("storage.dir is required")
		}
	case BackendPostgres:
		if err := c.Database.validate("database"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", BackendFile, BackendPostgres, c.Storage.Backend)
	}
	if strings.TrimSpace(c.Storage.DefaultNotebook) == "" {
		return errors.New("storage.default_notebook is required")
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}
	if c.Metrics.Port == c.Server.Port {
		return fmt.Errorf("metrics.port cannot equal server.port (%d)", c.Server.Port)
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

// ParseLevel maps a log.level string to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
