package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaultConfig(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := os.Stat(configFile); err != nil {
		t.Fatalf("expected default config file created: %v", err)
	}
	if cfg.Server.Address != "0.0.0.0:8000" {
		t.Errorf("expected default address, got %s", cfg.Server.Address)
	}
	if len(cfg.JWT.Secret) != 64 {
		t.Errorf("expected 64-char generated secret, got %d chars", len(cfg.JWT.Secret))
	}
	if cfg.Sweep.RetentionDays != 30 {
		t.Errorf("expected retention 30 days, got %d", cfg.Sweep.RetentionDays)
	}
	if cfg.Sweep.Workers != 4 || cfg.Sweep.QueueSize != 64 {
		t.Errorf("unexpected worker defaults: %d/%d", cfg.Sweep.Workers, cfg.Sweep.QueueSize)
	}
}

func TestLoadFillsMissingFields(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	partial := `server:
  address: "127.0.0.1:9000"
jwt:
  secret: "explicit-secret"
`
	if err := os.WriteFile(configFile, []byte(partial), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != "127.0.0.1:9000" {
		t.Errorf("explicit address overridden: %s", cfg.Server.Address)
	}
	if cfg.JWT.Secret != "explicit-secret" {
		t.Errorf("explicit secret overridden: %s", cfg.JWT.Secret)
	}
	if cfg.JWT.AccessMinutes != 1440 {
		t.Errorf("expected access default 1440, got %d", cfg.JWT.AccessMinutes)
	}
	if cfg.Sweep.HealthInterval != 60 {
		t.Errorf("expected health interval default 60, got %d", cfg.Sweep.HealthInterval)
	}
	if cfg.DNS.Resolver != "1.1.1.1:53" {
		t.Errorf("expected resolver default, got %s", cfg.DNS.Resolver)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configFile, []byte("server: [broken"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(configFile); err == nil {
		t.Error("expected error for malformed yaml")
	}
}
