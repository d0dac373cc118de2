package cmd

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateLine(t *testing.T) {
	if got := truncateLine("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncateLine("line one\nline two", 100); got != "line one line two" {
		t.Errorf("newlines not flattened: %q", got)
	}
	if got := truncateLine("abcdefghij", 5); got != "abcde..." {
		t.Errorf("got %q", got)
	}
}

func TestTruncateLineMultibyte(t *testing.T) {
	s := strings.Repeat("日本語テキスト", 20)
	got := truncateLine(s, 10)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation produced invalid UTF-8: %q", got)
	}
	if want := string([]rune(s)[:10]) + "..."; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
