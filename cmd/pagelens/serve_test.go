package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pagelens/pagelens/internal/config"
)

// TestNewServeCmd tests the serve command creation.
func TestNewServeCmd(t *testing.T) {
	t.Parallel()

	cmd := NewServeCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "serve" {
			t.Errorf("expected use 'serve', got %q", cmd.Use)
		}
	})

	t.Run("has addr flag with default address", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("addr")
		if flag == nil {
			t.Fatal("expected addr flag")
		}
		if flag.DefValue != config.DefaultAddr {
			t.Errorf("expected default %q, got %q", config.DefaultAddr, flag.DefValue)
		}
	})

	t.Run("has crawl tuning flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"timeout", "max-pages", "delay", "config"} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected %s flag", name)
			}
		}
	})
}

// TestBuildServeConfig tests serve configuration building from flags.
func TestBuildServeConfig(t *testing.T) {
	t.Run("builds config with defaults", func(t *testing.T) {
		cmd := NewServeCmd()
		cfg, err := buildServeConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Addr != config.DefaultAddr {
			t.Errorf("expected addr %q, got %q", config.DefaultAddr, cfg.Addr)
		}
		if cfg.MaxPages != config.DefaultMaxPages {
			t.Errorf("expected MaxPages %d, got %d", config.DefaultMaxPages, cfg.MaxPages)
		}
	})

	t.Run("builds config with custom addr", func(t *testing.T) {
		cmd := NewServeCmd()
		_ = cmd.Flags().Set("addr", "127.0.0.1:9090")
		cfg, err := buildServeConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Addr != "127.0.0.1:9090" {
			t.Errorf("expected addr '127.0.0.1:9090', got %q", cfg.Addr)
		}
	})

	t.Run("loads per-site overrides from config file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "pagelens.yaml")
		content := []byte(`
sites:
  example.com:
    maxPages: 5
    delay: 3s
`)
		if err := os.WriteFile(configPath, content, 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cmd := NewServeCmd()
		_ = cmd.Flags().Set("config", configPath)
		cfg, err := buildServeConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		maxPages, delay, _ := cfg.SiteOptions("example.com")
		if maxPages != 5 {
			t.Errorf("expected per-site maxPages 5, got %d", maxPages)
		}
		if delay != 3*time.Second {
			t.Errorf("expected per-site delay 3s, got %s", delay)
		}
	})

	t.Run("returns error for missing explicit config file", func(t *testing.T) {
		cmd := NewServeCmd()
		_ = cmd.Flags().Set("config", filepath.Join(t.TempDir(), "missing.yaml"))
		if _, err := buildServeConfig(cmd); err == nil {
			t.Fatal("expected error for missing explicit config file")
		}
	})
}
