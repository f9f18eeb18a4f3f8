package config

import "time"

// Config is the root configuration for a textsync server.
type Config struct {
	Instance InstanceConfig `yaml:"instance"`
	Server   ServerConfig   `yaml:"server"`
	Limits   LimitsConfig   `yaml:"limits"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DBConfig       `yaml:"database"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// InstanceConfig identifies this server.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ServerConfig holds HTTP and WebSocket settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	PingInterval    time.Duration `yaml:"ping_interval"`
	PongWait        time.Duration `yaml:"pong_wait"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	SendQueueSize   int           `yaml:"send_queue_size"` // Initial per-session outbound queue capacity
	MaxQueueSize    int           `yaml:"max_queue_size"`  // Queue length at which a slow session is dropped
	AllowedOrigins  []string      `yaml:"allowed_origins"` // Empty = any origin
}

// LimitsConfig holds the capacity limits fixed at startup.
type LimitsConfig struct {
	MaxTextSize    int `yaml:"max_text_size"` // Characters per buffer
	MaxConnections int `yaml:"max_connections"`
	MaxBuffers     int `yaml:"max_buffers"` // Notebooks mode only
}

// StorageConfig selects the buffer layout and persistence backend.
type StorageConfig struct {
	Mode            string `yaml:"mode"`    // "notebooks" or "single"
	Backend         string `yaml:"backend"` // "file" or "postgres"
	Dir             string `yaml:"dir"`     // File backend directory
	DefaultNotebook string `yaml:"default_notebook"`
	Restore         bool   `yaml:"restore"` // Re-register stored notebooks on startup
}

// DBConfig holds the PostgreSQL connection used by the postgres backend.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// MetricsConfig holds the operational (health + Prometheus) server settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Storage modes and backends.
const (
	ModeNotebooks = "notebooks"
	ModeSingle    = "single"

	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Addr returns the listen address for the main server.
func (s ServerConfig) Addr() string {
	return joinHostPort(s.Host, s.Port)
}
