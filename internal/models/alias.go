package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// AliasStore maps cache keys to user-assigned aliases, persisted as a flat
// JSON object. An empty alias string means "known model, no alias".
type AliasStore struct {
	path    string
	aliases map[string]string // cache key -> alias
}

// LoadAliases reads the alias file. A missing or unreadable file yields an
// empty store; bookkeeping must never block a command.
func LoadAliases(path string) *AliasStore {
	s := &AliasStore{path: path, aliases: make(map[string]string)}
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	if err := json.Unmarshal(data, &s.aliases); err != nil {
		s.aliases = make(map[string]string)
	}
	return s
}

// Save writes the alias map back to disk.
func (s *AliasStore) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.aliases, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}

// AliasFor returns the alias assigned to a cache key, or "".
func (s *AliasStore) AliasFor(cacheKey string) string {
	return s.aliases[cacheKey]
}

// CacheKeyFor resolves a name to a cache key when it matches an alias or a
// known cache key, case-insensitively. Aliases take priority.
func (s *AliasStore) CacheKeyFor(name string) (string, bool) {
	lower := strings.ToLower(name)
	for key, alias := range s.aliases {
		if alias != "" && strings.ToLower(alias) == lower {
			return key, true
		}
	}
	for key := range s.aliases {
		if strings.ToLower(key) == lower {
			return key, true
		}
	}
	return "", false
}

// Set assigns an alias to a cache key. An alias must be unique across models.
func (s *AliasStore) Set(cacheKey, alias string) error {
	if alias != "" {
		for key, existing := range s.aliases {
			if existing == alias && key != cacheKey {
				return fmt.Errorf("alias %q already exists for %q", alias, key)
			}
		}
	}
	s.aliases[cacheKey] = alias
	return nil
}

// Rename changes an existing alias to a new name.
func (s *AliasStore) Rename(oldAlias, newAlias string) error {
	key, ok := s.keyByAlias(oldAlias)
	if !ok {
		return fmt.Errorf("alias %q not found", oldAlias)
	}
	return s.Set(key, newAlias)
}

// Clear removes an alias by name, keeping the cache key registered.
func (s *AliasStore) Clear(alias string) (string, error) {
	key, ok := s.keyByAlias(alias)
	if !ok {
		return "", fmt.Errorf("alias %q not found", alias)
	}
	s.aliases[key] = ""
	return key, nil
}

// Drop removes a cache key from the store entirely (model deleted).
func (s *AliasStore) Drop(cacheKey string) {
	delete(s.aliases, cacheKey)
}

func (s *AliasStore) keyByAlias(alias string) (string, bool) {
	for key, a := range s.aliases {
		if a == alias {
			return key, true
		}
	}
	return "", false
}

// Pair is an alias assignment for display.
type Pair struct {
	CacheKey string
	Alias    string
}

// Pairs returns all non-empty alias assignments sorted by alias.
func (s *AliasStore) Pairs() []Pair {
	var pairs []Pair
	for key, alias := range s.aliases {
		if alias != "" {
			pairs = append(pairs, Pair{CacheKey: key, Alias: alias})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Alias < pairs[j].Alias })
	return pairs
}

// SyncFromCache registers cache keys for all cached models so the alias file
// mirrors the cache; new models get an empty alias. Returns true if the store
// changed and needs saving.
func (s *AliasStore) SyncFromCache(entries []Entry) bool {
	changed := false
	for _, e := range entries {
		if _, ok := s.aliases[e.CacheKey]; !ok {
			s.aliases[e.CacheKey] = ""
			changed = true
		}
	}
	return changed
}
