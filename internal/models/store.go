package models

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Store manages locally cached model directories under the hub cache root.
type Store struct {
	dir     string
	aliases *AliasStore
}

// NewStore creates a Store over the given hub cache directory.
func NewStore(dir string, aliases *AliasStore) *Store {
	return &Store{dir: dir, aliases: aliases}
}

// Dir returns the hub cache root this store scans.
func (s *Store) Dir() string {
	return s.dir
}

// List returns all cached models, sorted by cache key. A directory counts as
// a model when it has at least one snapshot, or common artifacts at its root.
func (s *Store) List() []Entry {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}

	var entries []Entry
	for _, de := range dirents {
		if !de.IsDir() || !strings.HasPrefix(de.Name(), "models--") {
			continue
		}
		path := filepath.Join(s.dir, de.Name())
		if !hasSnapshot(path) && !hasRootArtifacts(path) {
			continue
		}

		size, mtime := dirStats(path)
		entries = append(entries, Entry{
			CacheKey:   de.Name(),
			RepoID:     CacheKeyToRepoID(de.Name()),
			Alias:      s.alias(de.Name()),
			Path:       path,
			Size:       size,
			ModifiedAt: mtime,
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].CacheKey < entries[j].CacheKey })
	return entries
}

func (s *Store) alias(cacheKey string) string {
	if s.aliases == nil {
		return ""
	}
	return s.aliases.AliasFor(cacheKey)
}

// Get returns the cached entry for a user-supplied name (alias, repo ID or
// cache key), or an error if it is not cached.
func (s *Store) Get(name string) (Entry, error) {
	key := s.ResolveCacheKey(name)
	path := filepath.Join(s.dir, key)
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return Entry{}, fmt.Errorf("model %q not found in %s", name, s.dir)
	}

	size, mtime := dirStats(path)
	return Entry{
		CacheKey:   key,
		RepoID:     CacheKeyToRepoID(key),
		Alias:      s.alias(key),
		Path:       path,
		Size:       size,
		ModifiedAt: mtime,
	}, nil
}

// ResolveRepoID resolves a user-supplied name to a canonical repo ID.
// Aliases win, then known cache keys, then cache-key syntax, then pass-through.
func (s *Store) ResolveRepoID(name string) string {
	if s.aliases != nil {
		if key, ok := s.aliases.CacheKeyFor(name); ok {
			return CacheKeyToRepoID(key)
		}
	}
	if strings.HasPrefix(strings.ToLower(name), "models--") {
		return CacheKeyToRepoID(name)
	}
	return name
}

// ResolveCacheKey resolves a user-supplied name to a cache key.
func (s *Store) ResolveCacheKey(name string) string {
	name = strings.TrimSpace(name)
	if s.aliases != nil {
		if key, ok := s.aliases.CacheKeyFor(name); ok {
			return key
		}
	}
	if strings.HasPrefix(strings.ToLower(name), "models--") {
		return name
	}
	return RepoIDToCacheKey(s.ResolveRepoID(name))
}

// Remove deletes a cached model directory and drops its alias entry.
func (s *Store) Remove(cacheKey string) error {
	path := filepath.Join(s.dir, cacheKey)
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	if s.aliases != nil {
		s.aliases.Drop(cacheKey)
		if err := s.aliases.Save(); err != nil {
			return fmt.Errorf("update alias file: %w", err)
		}
	}
	return nil
}

// SnapshotDir returns the newest snapshot directory for a cached model, or
// the model root when the cache has no snapshots layout.
func (s *Store) SnapshotDir(cacheKey string) (string, error) {
	root := filepath.Join(s.dir, cacheKey)
	snapBase := filepath.Join(root, "snapshots")

	dirents, err := os.ReadDir(snapBase)
	if err != nil {
		if hasRootArtifacts(root) {
			return root, nil
		}
		return "", fmt.Errorf("no snapshots for %s", cacheKey)
	}

	newest := ""
	var newestMod int64
	for _, de := range dirents {
		if !de.IsDir() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().Unix() > newestMod {
			newest = de.Name()
			newestMod = info.ModTime().Unix()
		}
	}
	if newest == "" {
		return "", fmt.Errorf("no snapshots for %s", cacheKey)
	}
	return filepath.Join(snapBase, newest), nil
}

// RepoIDToCacheKey converts org/repo to the cache directory name format.
func RepoIDToCacheKey(repoID string) string {
	if strings.HasPrefix(repoID, "models--") {
		return repoID
	}
	if org, repo, ok := strings.Cut(repoID, "/"); ok {
		return "models--" + org + "--" + repo
	}
	return repoID
}

// CacheKeyToRepoID converts a cache directory name back to org/repo.
func CacheKeyToRepoID(cacheKey string) string {
	rest, ok := strings.CutPrefix(cacheKey, "models--")
	if !ok {
		return cacheKey
	}
	return strings.Replace(rest, "--", "/", 1)
}

func hasSnapshot(modelPath string) bool {
	dirents, err := os.ReadDir(filepath.Join(modelPath, "snapshots"))
	if err != nil {
		return false
	}
	for _, de := range dirents {
		if de.IsDir() {
			return true
		}
	}
	return false
}

func hasRootArtifacts(modelPath string) bool {
	for _, name := range rootArtifacts {
		if _, err := os.Stat(filepath.Join(modelPath, name)); err == nil {
			return true
		}
	}
	return false
}

// dirStats walks a directory summing file sizes and tracking the newest mtime.
func dirStats(path string) (size int64, mtime time.Time) {
	filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		size += info.Size()
		if m := info.ModTime(); m.After(mtime) {
			mtime = m
		}
		return nil
	})
	return size, mtime
}
