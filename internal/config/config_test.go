package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := loadFrom(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.Defaults.MaxTokens != 2048 || cfg.Defaults.ChatMode != "auto" {
		t.Errorf("expected defaults, got %+v", cfg.Defaults)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	doc := `{"defaults": {"max_tokens": 512}}`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadFrom(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Defaults.MaxTokens != 512 {
		t.Errorf("override not applied: %d", cfg.Defaults.MaxTokens)
	}
	// Untouched siblings keep their defaults.
	if cfg.Defaults.StreamMode != "all" {
		t.Errorf("sibling default lost: %q", cfg.Defaults.StreamMode)
	}
	if cfg.Sessions.MaxEntries != 50 {
		t.Errorf("unrelated section lost: %d", cfg.Sessions.MaxEntries)
	}
}

func TestLoadCorruptFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadFrom(path)
	if err == nil {
		t.Error("expected a parse error for corrupt config")
	}
	if cfg == nil || cfg.Defaults.MaxTokens != 2048 {
		t.Errorf("expected usable defaults despite corruption, got %+v", cfg)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := DefaultConfig()
	cfg.Defaults.StreamMode = "final"
	cfg.Sessions.MaxAgeDays = 30
	if err := cfg.saveTo(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := loadFrom(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Defaults.StreamMode != "final" || loaded.Sessions.MaxAgeDays != 30 {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}

func TestGetSet(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Set("defaults.max_tokens", "1024"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := cfg.Get("defaults.max_tokens"); got != "1024" {
		t.Errorf("get after set: %q", got)
	}

	if err := cfg.Set("defaults.stream_mode", "sideways"); err == nil {
		t.Error("expected rejection of invalid stream mode")
	}
	if err := cfg.Set("no.such.key", "x"); err == nil {
		t.Error("expected rejection of unknown key")
	}
	if _, err := cfg.Get("no.such.key"); err == nil {
		t.Error("expected rejection of unknown key")
	}
}
