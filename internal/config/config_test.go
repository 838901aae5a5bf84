package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig(\"\"): %v", err)
	}
	if cfg.Mode != "2-agent" || cfg.Dispatcher.Workers != 4 {
		t.Fatalf("LoadConfig(\"\") = %+v, want DefaultConfig", cfg)
	}
}

func TestLoadConfigNonexistentFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig(missing file): %v", err)
	}
	if cfg.Mode != "2-agent" {
		t.Fatalf("Mode = %q, want default 2-agent", cfg.Mode)
	}
}

func TestLoadConfigMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "mode: 3-agent\ndispatcher:\n  workers: 8\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Mode != "3-agent" {
		t.Fatalf("Mode = %q, want 3-agent", cfg.Mode)
	}
	if cfg.Dispatcher.Workers != 8 {
		t.Fatalf("Dispatcher.Workers = %d, want 8", cfg.Dispatcher.Workers)
	}
	// fields the override didn't touch should keep their defaults.
	if cfg.Dispatcher.MaxAttempts != 3 {
		t.Fatalf("Dispatcher.MaxAttempts = %d, want default 3", cfg.Dispatcher.MaxAttempts)
	}
}

func TestLoadConfigInvalidYAMLErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("mode: [unclosed"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig(invalid yaml) = nil error, want error")
	}
}

func TestSetModeGetMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SetMode("solo")
	if got := cfg.GetMode(); got != "solo" {
		t.Fatalf("GetMode() = %q, want solo", got)
	}
}
