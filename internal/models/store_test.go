package models

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func olderTime() time.Time {
	return time.Now().Add(-24 * time.Hour)
}

// writeModel creates a fake cached model with a snapshot containing the given
// files, and returns the cache root.
func writeModel(t *testing.T, root, cacheKey string, files map[string]string) {
	t.Helper()
	snap := filepath.Join(root, cacheKey, "snapshots", "abc123")
	if err := os.MkdirAll(snap, 0755); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(snap, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	aliases := LoadAliases(filepath.Join(root, "aliases.json"))
	return NewStore(root, aliases), root
}

func TestListScansCacheKeys(t *testing.T) {
	store, root := newTestStore(t)
	writeModel(t, root, "models--google--gemma-3-4b", map[string]string{"config.json": "{}"})
	writeModel(t, root, "models--mlx-community--llama-3-8b", map[string]string{"config.json": "{}"})

	// Should be ignored: no snapshots, no artifacts.
	os.MkdirAll(filepath.Join(root, "models--empty--repo"), 0755)
	// Should be ignored: not a model dir.
	os.MkdirAll(filepath.Join(root, "datasets--foo--bar"), 0755)

	entries := store.List()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(entries), entries)
	}
	if entries[0].CacheKey != "models--google--gemma-3-4b" {
		t.Errorf("expected sorted order, got %q first", entries[0].CacheKey)
	}
	if entries[0].RepoID != "google/gemma-3-4b" {
		t.Errorf("bad repo ID: %q", entries[0].RepoID)
	}
	if entries[0].Size == 0 {
		t.Error("expected non-zero size")
	}
}

func TestListTracksNewestModTime(t *testing.T) {
	store, root := newTestStore(t)
	writeModel(t, root, "models--org--aged", map[string]string{
		"config.json":       "{}",
		"model.safetensors": "weights",
	})
	snap := filepath.Join(root, "models--org--aged", "snapshots", "abc123")
	stale := olderTime()
	os.Chtimes(filepath.Join(snap, "config.json"), stale, stale)

	entries := store.List()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.ModifiedAt.IsZero() {
		t.Fatal("expected a modification time")
	}
	if !e.ModifiedAt.After(stale) {
		t.Errorf("ModifiedAt %v should track the newest file, not %v", e.ModifiedAt, stale)
	}
	// The CLI formats this field directly; make sure it stays a time.Time.
	if got := e.ModifiedAt.Format("2006-01-02 15:04"); len(got) != 16 {
		t.Errorf("unexpected formatted timestamp %q", got)
	}
}

func TestListAcceptsRootArtifactsWithoutSnapshots(t *testing.T) {
	store, root := newTestStore(t)
	dir := filepath.Join(root, "models--org--flat")
	os.MkdirAll(dir, 0755)
	os.WriteFile(filepath.Join(dir, "config.json"), []byte("{}"), 0644)

	entries := store.List()
	if len(entries) != 1 || entries[0].CacheKey != "models--org--flat" {
		t.Errorf("expected flat layout to be accepted: %+v", entries)
	}
}

func TestCacheKeyConversions(t *testing.T) {
	cases := []struct{ repo, key string }{
		{"google/gemma-3-4b", "models--google--gemma-3-4b"},
		{"mlx-community/Llama-3-8B", "models--mlx-community--Llama-3-8B"},
		{"bare-name", "bare-name"},
	}
	for _, c := range cases {
		if got := RepoIDToCacheKey(c.repo); got != c.key {
			t.Errorf("RepoIDToCacheKey(%q) = %q, want %q", c.repo, got, c.key)
		}
		if got := CacheKeyToRepoID(c.key); got != c.repo {
			t.Errorf("CacheKeyToRepoID(%q) = %q, want %q", c.key, got, c.repo)
		}
	}

	// A repo name containing double hyphens only splits on the first.
	if got := CacheKeyToRepoID("models--org--repo--extra"); got != "org/repo--extra" {
		t.Errorf("first separator should win: %q", got)
	}
}

func TestResolve(t *testing.T) {
	store, root := newTestStore(t)
	writeModel(t, root, "models--google--gemma-3-4b", map[string]string{"config.json": "{}"})
	store.aliases.Set("models--google--gemma-3-4b", "gemma3")

	cases := []struct{ in, key string }{
		{"gemma3", "models--google--gemma-3-4b"},
		{"GEMMA3", "models--google--gemma-3-4b"},
		{"google/gemma-3-4b", "models--google--gemma-3-4b"},
		{"models--google--gemma-3-4b", "models--google--gemma-3-4b"},
		{"unrelated/model", "models--unrelated--model"},
	}
	for _, c := range cases {
		if got := store.ResolveCacheKey(c.in); got != c.key {
			t.Errorf("ResolveCacheKey(%q) = %q, want %q", c.in, got, c.key)
		}
	}

	if got := store.ResolveRepoID("gemma3"); got != "google/gemma-3-4b" {
		t.Errorf("ResolveRepoID alias = %q", got)
	}
	if got := store.ResolveRepoID("some/other"); got != "some/other" {
		t.Errorf("ResolveRepoID pass-through = %q", got)
	}
}

func TestGetAndRemove(t *testing.T) {
	store, root := newTestStore(t)
	writeModel(t, root, "models--org--doomed", map[string]string{"config.json": "{}"})
	store.aliases.Set("models--org--doomed", "doomed")

	entry, err := store.Get("doomed")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if entry.Alias != "doomed" {
		t.Errorf("expected alias on entry, got %q", entry.Alias)
	}

	if err := store.Remove(entry.CacheKey); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := store.Get("doomed"); err == nil {
		t.Error("expected error after removal")
	}
	if _, ok := store.aliases.CacheKeyFor("doomed"); ok {
		t.Error("alias should be dropped with the model")
	}
}

func TestSnapshotDirPicksNewest(t *testing.T) {
	store, root := newTestStore(t)
	base := filepath.Join(root, "models--org--multi", "snapshots")
	os.MkdirAll(filepath.Join(base, "older"), 0755)
	os.MkdirAll(filepath.Join(base, "newer"), 0755)
	old := filepath.Join(base, "older")
	os.Chtimes(old, olderTime(), olderTime())

	snap, err := store.SnapshotDir("models--org--multi")
	if err != nil {
		t.Fatalf("snapshot dir: %v", err)
	}
	if filepath.Base(snap) != "newer" {
		t.Errorf("expected newest snapshot, got %q", snap)
	}
}

func TestLoadModelConfigFlattensTextConfig(t *testing.T) {
	store, root := newTestStore(t)
	writeModel(t, root, "models--org--mm", map[string]string{
		"config.json": `{"model_type":"gemma3","text_config":{"hidden_size":2048,"num_hidden_layers":18}}`,
	})

	cfg := store.LoadModelConfig("models--org--mm")
	if cfg.Int("hidden_size") != 2048 {
		t.Errorf("text_config not flattened: %v", cfg)
	}
	if cfg.ModelType() != "gemma3" {
		t.Errorf("model type = %q", cfg.ModelType())
	}
}

func TestPrecision(t *testing.T) {
	quantized := ModelConfig{"quantization_config": map[string]any{"dtype": "int4"}}
	if got := quantized.Precision(); got != "int4" {
		t.Errorf("Precision = %q, want int4", got)
	}
	// Absent or dtype-less quantization reports empty so callers can skip it.
	if got := (ModelConfig{}).Precision(); got != "" {
		t.Errorf("Precision of plain config = %q, want empty", got)
	}
	if got := (ModelConfig{"quantization_config": map[string]any{"bits": 4.0}}).Precision(); got != "" {
		t.Errorf("Precision without dtype = %q, want empty", got)
	}
}

func TestNeedsHarmony(t *testing.T) {
	if !(ModelConfig{"model_type": "gpt_oss"}).NeedsHarmony() {
		t.Error("gpt_oss should need harmony")
	}
	if (ModelConfig{"model_type": "llama"}).NeedsHarmony() {
		t.Error("llama should not need harmony")
	}
}

func TestEstimateKVBytes(t *testing.T) {
	// 32 layers, hidden 4096, 1000 tokens, fp16: 32 * 1000 * 2*4096*2
	got := EstimateKVBytes(32, 4096, 1000, 2)
	if want := int64(32) * 1000 * 2 * 4096 * 2; got != want {
		t.Errorf("EstimateKVBytes = %d, want %d", got, want)
	}
	if EstimateKVBytes(0, 4096, 1000, 2) != 0 {
		t.Error("zero layers should estimate zero")
	}
}

func TestHumanBytes(t *testing.T) {
	cases := []struct {
		n    int64
		want string
	}{
		{512, "512.00 B"},
		{2048, "2.00 KB"},
		{3 * 1024 * 1024 * 1024, "3.00 GB"},
	}
	for _, c := range cases {
		if got := HumanBytes(c.n); got != c.want {
			t.Errorf("HumanBytes(%d) = %q, want %q", c.n, got, c.want)
		}
	}
}
