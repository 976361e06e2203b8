package commands

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadServeConfigDefaults(t *testing.T) {
	cfg, err := loadServeConfig("")
	if err != nil {
		t.Fatalf("loadServeConfig: %v", err)
	}
	if cfg.Addr != "127.0.0.1:8787" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.Engine.SampleRate != 11500 {
		t.Errorf("Engine.SampleRate = %d", cfg.Engine.SampleRate)
	}
}

func TestLoadServeConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("addr: \"0.0.0.0:9000\"\nengine:\n  search_beam_count: 500\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := loadServeConfig(path)
	if err != nil {
		t.Fatalf("loadServeConfig: %v", err)
	}
	if cfg.Addr != "0.0.0.0:9000" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.Engine.SearchBeamCount != 500 {
		t.Errorf("SearchBeamCount = %d", cfg.Engine.SearchBeamCount)
	}
	// Fields the file omits keep their defaults.
	if cfg.Engine.WindowSize != 4096 {
		t.Errorf("WindowSize = %d", cfg.Engine.WindowSize)
	}
}

func TestLoadServeConfigMissingFile(t *testing.T) {
	if _, err := loadServeConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
