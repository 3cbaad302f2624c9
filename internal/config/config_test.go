package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rickgao/ledgerwatch/internal/model"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "watcher.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-watcher
api:
  base_url: https://ledger.example.com/api/v1
  api_key: test-key
poller:
  max_stored_events: 250
  replay_history: true
filters:
  - event_type: Transfer
    attributes:
      asset: USD
  - event_type: Mint
    emitter: acct-treasury
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-watcher" {
		t.Errorf("Instance.ID = %q, want test-watcher", cfg.Instance.ID)
	}
	if cfg.API.BaseURL != "https://ledger.example.com/api/v1" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.Poller.MaxStoredEvents != 250 {
		t.Errorf("Poller.MaxStoredEvents = %d, want 250", cfg.Poller.MaxStoredEvents)
	}
	if !cfg.Poller.ReplayHistory {
		t.Error("Poller.ReplayHistory = false, want true")
	}
	if len(cfg.Filters) != 2 {
		t.Fatalf("Filters = %d, want 2", len(cfg.Filters))
	}
	if cfg.Filters[0].Attributes["asset"] != "USD" {
		t.Errorf("Filters[0].Attributes = %v", cfg.Filters[0].Attributes)
	}
	if cfg.Filters[1].Emitter != "acct-treasury" {
		t.Errorf("Filters[1].Emitter = %q", cfg.Filters[1].Emitter)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_LEDGER_API_KEY", "secret123")

	yaml := `
api:
  base_url: https://ledger.example.com/api/v1
  api_key: ${TEST_LEDGER_API_KEY}
filters:
  - event_type: Transfer
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API.APIKey != "secret123" {
		t.Errorf("API.APIKey = %q, want secret123", cfg.API.APIKey)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
api:
  base_url: https://ledger.example.com/api/v1
filters:
  - event_type: Transfer
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if !strings.HasPrefix(cfg.Instance.ID, "watcher-") {
		t.Errorf("Instance.ID = %q, want generated watcher-* id", cfg.Instance.ID)
	}
	if cfg.Poller.Interval != DefaultPollInterval {
		t.Errorf("Poller.Interval = %v, want %v", cfg.Poller.Interval, DefaultPollInterval)
	}
	if cfg.Poller.MemoryWindow != DefaultMemoryWindow {
		t.Errorf("Poller.MemoryWindow = %v, want %v", cfg.Poller.MemoryWindow, DefaultMemoryWindow)
	}
	if cfg.Poller.MaxStoredEvents != DefaultMaxStoredEvents {
		t.Errorf("Poller.MaxStoredEvents = %d, want %d", cfg.Poller.MaxStoredEvents, DefaultMaxStoredEvents)
	}
	if cfg.Health.Port != DefaultHealthPort {
		t.Errorf("Health.Port = %d, want %d", cfg.Health.Port, DefaultHealthPort)
	}
	if cfg.Archive.Writer.BatchSize != DefaultBatchSize {
		t.Errorf("Archive.Writer.BatchSize = %d, want %d", cfg.Archive.Writer.BatchSize, DefaultBatchSize)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*WatcherConfig)
		wantErr string
	}{
		{
			"missing base url",
			func(c *WatcherConfig) { c.API.BaseURL = "" },
			"api.base_url",
		},
		{
			"no filters",
			func(c *WatcherConfig) { c.Filters = nil },
			"filter",
		},
		{
			"bad max stored events",
			func(c *WatcherConfig) { c.Poller.MaxStoredEvents = 0 },
			"max_stored_events",
		},
		{
			"bad health port",
			func(c *WatcherConfig) { c.Health.Port = 70000 },
			"health.port",
		},
		{
			"archive enabled without host",
			func(c *WatcherConfig) {
				c.Archive.Enabled = true
				c.Archive.Database.Host = ""
			},
			"archive.database.host",
		},
		{
			"archive min conns above max",
			func(c *WatcherConfig) {
				c.Archive.Enabled = true
				c.Archive.Database.MinConns = 20
			},
			"min_conns",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseValidConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_OK(t *testing.T) {
	if err := baseValidConfig().Validate(); err != nil {
		t.Errorf("Validate on valid config failed: %v", err)
	}
}

func TestLoadAndValidate_Fails(t *testing.T) {
	yaml := `
api:
  base_url: https://ledger.example.com/api/v1
`
	path := writeTempFile(t, yaml)

	if _, err := LoadAndValidate(path); err == nil {
		t.Error("LoadAndValidate succeeded without filters, want error")
	}
}

func baseValidConfig() *WatcherConfig {
	cfg := &WatcherConfig{}
	cfg.API.BaseURL = "https://ledger.example.com/api/v1"
	cfg.Filters = append(cfg.Filters, model.Filter{EventType: "Transfer"})
	cfg.applyDefaults()
	cfg.Archive.Database.Host = "localhost"
	cfg.Archive.Database.Name = "events"
	cfg.Archive.Database.User = "watcher"
	cfg.Archive.Database.Password = "pw"
	return cfg
}
