package config

import (
	"time"

	"github.com/rickgao/ledgerwatch/internal/model"
)

// WatcherConfig is the root configuration for a watcher instance.
type WatcherConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	API      APIConfig      `yaml:"api"`
	Poller   PollerConfig   `yaml:"poller"`
	Filters  []model.Filter `yaml:"filters"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Health   HealthConfig   `yaml:"health"`
}

// InstanceConfig identifies this watcher.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// APIConfig holds ledger API settings.
type APIConfig struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`          // Bearer key for unsigned access
	PrivateKeyPath string        `yaml:"private_key_path"` // RSA private key PEM file, enables signed requests
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
}

// PollerConfig holds polling engine settings.
type PollerConfig struct {
	Interval        time.Duration `yaml:"interval"`
	QueryTimeout    time.Duration `yaml:"query_timeout"`
	MemoryWindow    time.Duration `yaml:"memory_window"`
	MaxStoredEvents int           `yaml:"max_stored_events"`
	ReplayHistory   bool          `yaml:"replay_history"`
}

// ArchiveConfig holds the optional Postgres event archive.
type ArchiveConfig struct {
	Enabled  bool         `yaml:"enabled"`
	Database DBConfig     `yaml:"database"`
	Writer   WriterConfig `yaml:"writer"`
}

// DBConfig holds a single database connection.
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

// WriterConfig holds batch writer settings.
type WriterConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// HealthConfig holds the health/status HTTP endpoint settings.
type HealthConfig struct {
	Port int `yaml:"port"`
}
