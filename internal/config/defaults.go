package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultInstanceID      = "textsync"
	DefaultPort            = 5000
	DefaultShutdownTimeout = 10 * time.Second
	DefaultPingInterval    = 25 * time.Second
	DefaultPongWait        = 60 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultSendQueueSize   = 64
	DefaultMaxQueueSize    = 4096
	DefaultMaxTextSize     = 10_000_000
	DefaultMaxConnections  = 50
	DefaultMaxBuffers      = 10
	DefaultStorageMode     = ModeNotebooks
	DefaultStorageBackend  = BackendFile
	DefaultStorageDir      = "."
	DefaultNotebook        = "default"
	DefaultDBPort          = 5432
	DefaultDBSSLMode       = "prefer"
	DefaultMaxConns        = 4
	DefaultMinConns        = 1
	DefaultMetricsPort     = 9090
	DefaultMetricsPath     = "/metrics"
	DefaultLogLevel        = "info"
)

func (c *Config) applyDefaults() {
	if c.Instance.ID == "" {
		c.Instance.ID = DefaultInstanceID
	}

	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Server.PingInterval == 0 {
		c.Server.PingInterval = DefaultPingInterval
	}
	if c.Server.PongWait == 0 {
		c.Server.PongWait = DefaultPongWait
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Server.SendQueueSize == 0 {
		c.Server.SendQueueSize = DefaultSendQueueSize
	}
	if c.Server.MaxQueueSize == 0 {
		c.Server.MaxQueueSize = DefaultMaxQueueSize
	}

	// Limits defaults
	if c.Limits.MaxTextSize == 0 {
		c.Limits.MaxTextSize = DefaultMaxTextSize
	}
	if c.Limits.MaxConnections == 0 {
		c.Limits.MaxConnections = DefaultMaxConnections
	}
	if c.Limits.MaxBuffers == 0 {
		c.Limits.MaxBuffers = DefaultMaxBuffers
	}

	// Storage defaults
	if c.Storage.Mode == "" {
		c.Storage.Mode = DefaultStorageMode
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = DefaultStorageBackend
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = DefaultStorageDir
	}
	if c.Storage.DefaultNotebook == "" {
		c.Storage.DefaultNotebook = DefaultNotebook
	}
	if c.Storage.Mode == ModeSingle {
		c.Limits.MaxBuffers = 1
	}

	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}
