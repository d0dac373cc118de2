package models

import (
	"path/filepath"
	"testing"
)

func TestAliasRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.json")

	s := LoadAliases(path)
	if err := s.Set("models--a--b", "ab"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded := LoadAliases(path)
	if reloaded.AliasFor("models--a--b") != "ab" {
		t.Errorf("alias lost on reload")
	}
	key, ok := reloaded.CacheKeyFor("AB")
	if !ok || key != "models--a--b" {
		t.Errorf("case-insensitive lookup failed: %q %v", key, ok)
	}
}

func TestAliasUniqueness(t *testing.T) {
	s := LoadAliases(filepath.Join(t.TempDir(), "aliases.json"))
	s.Set("models--a--b", "dup")
	if err := s.Set("models--c--d", "dup"); err == nil {
		t.Error("expected duplicate alias rejection")
	}
	// Re-assigning the same alias to the same model is fine.
	if err := s.Set("models--a--b", "dup"); err != nil {
		t.Errorf("same-model reassignment should succeed: %v", err)
	}
}

func TestAliasRenameAndClear(t *testing.T) {
	s := LoadAliases(filepath.Join(t.TempDir(), "aliases.json"))
	s.Set("models--a--b", "old")

	if err := s.Rename("old", "new"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if s.AliasFor("models--a--b") != "new" {
		t.Errorf("rename not applied")
	}
	if err := s.Rename("missing", "x"); err == nil {
		t.Error("expected error for missing alias")
	}

	key, err := s.Clear("new")
	if err != nil || key != "models--a--b" {
		t.Fatalf("clear: %q %v", key, err)
	}
	if s.AliasFor("models--a--b") != "" {
		t.Error("clear should empty the alias")
	}
	// The cache key stays registered after clearing.
	if _, ok := s.CacheKeyFor("models--a--b"); !ok {
		t.Error("cache key should remain after clear")
	}
}

func TestSyncFromCache(t *testing.T) {
	s := LoadAliases(filepath.Join(t.TempDir(), "aliases.json"))
	s.Set("models--a--b", "ab")

	entries := []Entry{{CacheKey: "models--a--b"}, {CacheKey: "models--new--model"}}
	if !s.SyncFromCache(entries) {
		t.Error("expected change for new model")
	}
	if s.AliasFor("models--a--b") != "ab" {
		t.Error("existing alias must survive sync")
	}
	if s.SyncFromCache(entries) {
		t.Error("second sync should be a no-op")
	}
}

func TestPairsSortedNonEmpty(t *testing.T) {
	s := LoadAliases(filepath.Join(t.TempDir(), "aliases.json"))
	s.Set("models--z--z", "zulu")
	s.Set("models--a--a", "alpha")
	s.Set("models--m--m", "")

	pairs := s.Pairs()
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}
	if pairs[0].Alias != "alpha" || pairs[1].Alias != "zulu" {
		t.Errorf("pairs not sorted: %+v", pairs)
	}
}
