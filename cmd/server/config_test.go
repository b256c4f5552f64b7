package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate default config: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Errorf("server address = %q", cfg.Server.Address)
	}
	if cfg.Scheduler.PollInterval != time.Minute {
		t.Errorf("poll interval = %s", cfg.Scheduler.PollInterval)
	}
	if !cfg.Scheduler.Enabled {
		t.Error("scheduler should be enabled by default")
	}
}

func TestConfigValidate_RejectsShortPollInterval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scheduler.PollInterval = 100 * time.Millisecond

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for sub-second poll interval")
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  address: ":9000"
database:
  path: /var/lib/alertdesk/alertdesk.db
opensearch:
  addresses:
    - https://indexer:9200
  username: reader
scheduler:
  enabled: true
  poll_interval: 30s
auth:
  lockout_threshold: 3
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Server.Address != ":9000" {
		t.Errorf("server address = %q", cfg.Server.Address)
	}
	if cfg.Scheduler.PollInterval != 30*time.Second {
		t.Errorf("poll interval = %s", cfg.Scheduler.PollInterval)
	}
	if cfg.OpenSearch.Username != "reader" {
		t.Errorf("opensearch username = %q", cfg.OpenSearch.Username)
	}
	if cfg.Auth.LockoutThreshold != 3 {
		t.Errorf("lockout threshold = %d", cfg.Auth.LockoutThreshold)
	}
	// Unset fields pick up defaults
	if cfg.Metrics.Address != ":9090" {
		t.Errorf("metrics address = %q", cfg.Metrics.Address)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
