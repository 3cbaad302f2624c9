package config

import (
	"time"

	"github.com/google/uuid"
)

// Default values for optional configuration fields.
const (
	DefaultAPITimeout      = 30 * time.Second
	DefaultMaxRetries      = 3
	DefaultPollInterval    = 5 * time.Second
	DefaultQueryTimeout    = 10 * time.Second
	DefaultMemoryWindow    = time.Hour
	DefaultMaxStoredEvents = 1000
	DefaultDBPort          = 5432
	DefaultDBSSLMode       = "prefer"
	DefaultMaxConns        = 10
	DefaultMinConns        = 2
	DefaultBatchSize       = 500
	DefaultFlushInterval   = 1 * time.Second
	DefaultBufferSize      = 10000
	DefaultHealthPort      = 8080
)

func (c *WatcherConfig) applyDefaults() {
	if c.Instance.ID == "" {
		c.Instance.ID = "watcher-" + uuid.NewString()[:8]
	}

	// API defaults
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}

	// Poller defaults
	if c.Poller.Interval == 0 {
		c.Poller.Interval = DefaultPollInterval
	}
	if c.Poller.QueryTimeout == 0 {
		c.Poller.QueryTimeout = DefaultQueryTimeout
	}
	if c.Poller.MemoryWindow == 0 {
		c.Poller.MemoryWindow = DefaultMemoryWindow
	}
	if c.Poller.MaxStoredEvents == 0 {
		c.Poller.MaxStoredEvents = DefaultMaxStoredEvents
	}

	// Archive defaults
	if c.Archive.Database.Port == 0 {
		c.Archive.Database.Port = DefaultDBPort
	}
	if c.Archive.Database.SSLMode == "" {
		c.Archive.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Archive.Database.MaxConns == 0 {
		c.Archive.Database.MaxConns = DefaultMaxConns
	}
	if c.Archive.Database.MinConns == 0 {
		c.Archive.Database.MinConns = DefaultMinConns
	}
	if c.Archive.Writer.BatchSize == 0 {
		c.Archive.Writer.BatchSize = DefaultBatchSize
	}
	if c.Archive.Writer.FlushInterval == 0 {
		c.Archive.Writer.FlushInterval = DefaultFlushInterval
	}
	if c.Archive.Writer.BufferSize == 0 {
		c.Archive.Writer.BufferSize = DefaultBufferSize
	}

	// Health defaults
	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}
}
