package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultListenAddr(t *testing.T) {
	cfg := Default()
	if got := cfg.ListenAddr(); got != "127.0.0.1:22345" {
		t.Fatalf("unexpected default addr: %s", got)
	}
}

func TestUpdateFromSkipsZeroValues(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{Port: 9999, LogLevel: "debug"})

	if cfg.Port != 9999 || cfg.LogLevel != "debug" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Host != "127.0.0.1" || cfg.MaxSessions != 256 {
		t.Fatalf("zero-value overrides clobbered defaults: %+v", cfg)
	}
}

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, resolved, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved != path {
		t.Fatalf("resolved path %s, want %s", resolved, path)
	}
	if cfg.Port != Default().Port {
		t.Fatalf("unexpected port: %d", cfg.Port)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "host: 0.0.0.0\nport: 4000\nidle_timeout: 30s\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Host != "0.0.0.0" || cfg.Port != 4000 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.IdleTimeout != 30*time.Second {
		t.Fatalf("duration not parsed: %v", cfg.IdleTimeout)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level not applied: %s", cfg.LogLevel)
	}
	// Unset keys keep their defaults.
	if cfg.MaxSessions != 256 {
		t.Fatalf("default lost: %+v", cfg)
	}
}
