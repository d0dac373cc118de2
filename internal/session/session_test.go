package session

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/CreamyCappuccino/mlxlm/internal/chat"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return st
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st := newTestStore(t)

	s := New("org/model", Settings{MaxTokens: 512, StreamMode: "final"})
	s.Append("Hello", "Hi! How can I help?")
	s.Append("Bye", "Goodbye!")

	if err := st.Save(s); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := st.Load(s.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Model != "org/model" || got.MessageCount != 4 {
		t.Errorf("loaded session mismatch: %+v", got)
	}
	if got.Settings.MaxTokens != 512 || got.Settings.StreamMode != "final" {
		t.Errorf("settings lost: %+v", got.Settings)
	}
	if got.History[0].Role != chat.RoleUser || got.History[1].Role != chat.RoleAssistant {
		t.Error("history pairing broken")
	}
}

func TestLoadByPrefix(t *testing.T) {
	st := newTestStore(t)
	s := New("m", Settings{})
	if err := st.Save(s); err != nil {
		t.Fatal(err)
	}

	got, err := st.Load(s.ID[:8])
	if err != nil {
		t.Fatalf("load by prefix: %v", err)
	}
	if got.ID != s.ID {
		t.Errorf("loaded %s, want %s", got.ID, s.ID)
	}
}

func TestLoadAmbiguousPrefix(t *testing.T) {
	st := newTestStore(t)
	a := New("m", Settings{})
	a.ID = "aaaa1111"
	b := New("m", Settings{})
	b.ID = "aaaa2222"
	st.Save(a)
	st.Save(b)

	if _, err := st.Load("aaaa"); err == nil {
		t.Error("expected ambiguity error")
	}
}

func TestListNewestFirst(t *testing.T) {
	st := newTestStore(t)

	old := New("m", Settings{})
	old.UpdatedAt = time.Now().Add(-time.Hour)
	recent := New("m", Settings{})
	st.Save(old)
	st.Save(recent)

	sessions, err := st.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != recent.ID {
		t.Errorf("ordering wrong: %v", sessions)
	}
}

func TestDelete(t *testing.T) {
	st := newTestStore(t)
	s := New("m", Settings{})
	st.Save(s)

	if err := st.Delete(s.ID[:8]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := st.Load(s.ID); err == nil {
		t.Error("session still loadable after delete")
	}
}

func TestPrune(t *testing.T) {
	st := newTestStore(t)

	stale := New("m", Settings{})
	stale.UpdatedAt = time.Now().AddDate(0, 0, -90)
	mid := New("m", Settings{})
	mid.UpdatedAt = time.Now().Add(-time.Hour)
	fresh := New("m", Settings{})
	st.Save(stale)
	st.Save(mid)
	st.Save(fresh)

	removed, err := st.Prune(2, 30)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := st.Load(stale.ID); err == nil {
		t.Error("stale session survived pruning")
	}
	if _, err := st.Load(fresh.ID); err != nil {
		t.Errorf("fresh session pruned: %v", err)
	}

	// Zero limits disable pruning.
	if n, _ := st.Prune(0, 0); n != 0 {
		t.Errorf("prune with zero limits removed %d", n)
	}
}

func TestTitleFallsBackToFirstUserMessage(t *testing.T) {
	s := New("m", Settings{})
	s.Append("What is the capital of France?", "Paris.")
	if got := s.Title(); got != "What is the capital of France?" {
		t.Errorf("title = %q", got)
	}

	s.Name = "geography"
	if got := s.Title(); got != "geography" {
		t.Errorf("named title = %q", got)
	}
}

func TestTitleTruncatesOnRunes(t *testing.T) {
	s := New("m", Settings{})
	long := strings.Repeat("日本語のとても長い質問", 10)
	s.Append(long, "answer")

	got := s.Title()
	if !utf8.ValidString(got) {
		t.Fatalf("title is not valid UTF-8: %q", got)
	}
	if want := string([]rune(long)[:48]) + "…"; got != want {
		t.Errorf("title = %q, want %q", got, want)
	}
}

func TestExportMarkdown(t *testing.T) {
	s := New("org/model", Settings{})
	s.Append("Hi", "Hello!")

	out, err := Export(s, FormatMarkdown)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	text := string(out)
	for _, want := range []string{"org/model", "**User:**", "**Assistant:**", "Hello!"} {
		if !strings.Contains(text, want) {
			t.Errorf("markdown missing %q:\n%s", want, text)
		}
	}
}

func TestExportJSONRoundTrips(t *testing.T) {
	s := New("m", Settings{})
	s.Append("a", "b")

	out, err := Export(s, FormatJSON)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var got Session
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID != s.ID || len(got.History) != 2 {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestParseExportFormat(t *testing.T) {
	if _, err := ParseExportFormat("yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
	if f, err := ParseExportFormat("MD"); err != nil || f != FormatMarkdown {
		t.Errorf("parse MD = %v, %v", f, err)
	}
}
