// Package session persists chat sessions as JSON files so conversations
// can be resumed, inspected, and exported later.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/CreamyCappuccino/mlxlm/internal/chat"
)

// Settings is the snapshot of chat settings stored with a session, so a
// resumed conversation picks up where its knobs were.
type Settings struct {
	MaxTokens  int    `json:"max_tokens,omitempty"`
	StreamMode string `json:"stream_mode,omitempty"`
	ChatMode   string `json:"chat_mode,omitempty"`
	Reasoning  string `json:"reasoning,omitempty"`
	TimeLimit  int    `json:"time_limit,omitempty"`
}

// Session is a persisted conversation.
type Session struct {
	ID           string      `json:"id"`
	Name         string      `json:"name,omitempty"`
	Model        string      `json:"model"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	Settings     Settings    `json:"settings"`
	History      []chat.Turn `json:"history"`
	MessageCount int         `json:"message_count"`
	Archived     bool        `json:"archived,omitempty"`
}

// New creates a fresh session for a model.
func New(model string, settings Settings) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		Model:     model,
		CreatedAt: now,
		UpdatedAt: now,
		Settings:  settings,
	}
}

// Append records a user/assistant exchange. History stays paired: a user
// turn is always followed by the assistant turn it produced.
func (s *Session) Append(userMsg, assistantMsg string) {
	s.History = append(s.History,
		chat.Turn{Role: chat.RoleUser, Content: userMsg},
		chat.Turn{Role: chat.RoleAssistant, Content: assistantMsg},
	)
	s.MessageCount = len(s.History)
	s.UpdatedAt = time.Now().UTC()
}

// Title returns the session's display title: the explicit name if set,
// otherwise the start of the first user message.
func (s *Session) Title() string {
	if s.Name != "" {
		return s.Name
	}
	for _, turn := range s.History {
		if turn.Role == chat.RoleUser {
			title := strings.TrimSpace(turn.Content)
			if runes := []rune(title); len(runes) > 48 {
				title = string(runes[:48]) + "…"
			}
			return title
		}
	}
	return "(empty)"
}

// Store manages session files under a directory, one JSON file per session.
type Store struct {
	dir string
}

// NewStore creates a Store over dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create sessions dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (st *Store) path(id string) string {
	return filepath.Join(st.dir, id+".json")
}

// Save writes the session to disk.
func (st *Store) Save(s *Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	tmp := st.path(s.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Rename(tmp, st.path(s.ID))
}

// Load reads a session by ID. Short ID prefixes are accepted when they
// match exactly one session.
func (st *Store) Load(id string) (*Session, error) {
	data, err := os.ReadFile(st.path(id))
	if os.IsNotExist(err) {
		full, rerr := st.resolvePrefix(id)
		if rerr != nil {
			return nil, rerr
		}
		data, err = os.ReadFile(st.path(full))
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	return &s, nil
}

func (st *Store) resolvePrefix(prefix string) (string, error) {
	ids, err := st.ids()
	if err != nil {
		return "", err
	}
	var matches []string
	for _, id := range ids {
		if strings.HasPrefix(id, prefix) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no session matches %q", prefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("session prefix %q is ambiguous (%d matches)", prefix, len(matches))
	}
}

func (st *Store) ids() ([]string, error) {
	entries, err := os.ReadDir(st.dir)
	if err != nil {
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}

// List returns all sessions, newest first. Unreadable files are skipped.
func (st *Store) List() ([]*Session, error) {
	ids, err := st.ids()
	if err != nil {
		return nil, err
	}
	var sessions []*Session
	for _, id := range ids {
		s, err := st.Load(id)
		if err != nil {
			continue
		}
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

// Prune deletes sessions beyond maxEntries (newest kept) and sessions older
// than maxAgeDays. Zero disables either limit. Returns how many were removed.
func (st *Store) Prune(maxEntries, maxAgeDays int) (int, error) {
	sessions, err := st.List()
	if err != nil {
		return 0, err
	}

	removed := 0
	cutoff := time.Time{}
	if maxAgeDays > 0 {
		cutoff = time.Now().AddDate(0, 0, -maxAgeDays)
	}
	for i, s := range sessions {
		tooMany := maxEntries > 0 && i >= maxEntries
		tooOld := !cutoff.IsZero() && s.UpdatedAt.Before(cutoff)
		if !tooMany && !tooOld {
			continue
		}
		if err := os.Remove(st.path(s.ID)); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Delete removes a session file. Prefix resolution applies.
func (st *Store) Delete(id string) error {
	if _, err := os.Stat(st.path(id)); os.IsNotExist(err) {
		full, rerr := st.resolvePrefix(id)
		if rerr != nil {
			return rerr
		}
		id = full
	}
	return os.Remove(st.path(id))
}
