package chat

import (
	"regexp"
	"strings"
)

// Harmony channel markers recognized by the stream filter.
const finalEntryMarker = "<|channel|>final<|message|>"

var finalExitMarkers = []string{"<|end|>", "<|start|>"}

// sentinelPattern matches any bracketed harmony sentinel so emitted text is
// free of markup regardless of the channel/role vocabulary in use.
var sentinelPattern = regexp.MustCompile(`<\|[^>]*\|>`)

// Tail sizes keep memory bounded while still matching markers that span
// fragment boundaries.
var (
	searchKeep = len(finalEntryMarker) + 64
	emitKeep   = maxLen(finalExitMarkers) + 64
)

func maxLen(ss []string) int {
	n := 0
	for _, s := range ss {
		if len(s) > n {
			n = len(s)
		}
	}
	return n
}

// CleanSentinels strips every bracketed sentinel substring from s.
func CleanSentinels(s string) string {
	return sentinelPattern.ReplaceAllString(s, "")
}

// FinalFilter extracts the final-channel content from a harmony token stream.
// It is a two-phase state machine: it searches for the entry marker, then
// emits cleaned text until the earliest exit marker, after which it produces
// no further output. One FinalFilter serves exactly one generation call.
type FinalFilter struct {
	buf     string
	inFinal bool
	done    bool
}

// NewFinalFilter creates a filter for one streamed generation.
func NewFinalFilter() *FinalFilter {
	return &FinalFilter{}
}

// Feed consumes one stream fragment and returns zero or more cleaned chunks
// ready for display. Fragments may be of any size; marker matching works
// across arbitrary fragmentation.
func (f *FinalFilter) Feed(fragment string) []string {
	if f.done {
		return nil
	}
	f.buf += fragment

	if !f.inFinal {
		idx := strings.Index(f.buf, finalEntryMarker)
		if idx < 0 {
			if len(f.buf) > searchKeep {
				f.buf = f.buf[len(f.buf)-searchKeep:]
			}
			return nil
		}
		f.inFinal = true
		f.buf = f.buf[idx+len(finalEntryMarker):]
	}

	// Emitting: stop at the earliest exit marker. A repeated entry marker
	// past this point is ordinary content; only exit markers are checked.
	end := -1
	for _, m := range finalExitMarkers {
		if i := strings.Index(f.buf, m); i >= 0 && (end < 0 || i < end) {
			end = i
		}
	}
	if end >= 0 {
		chunk := f.buf[:end]
		f.buf = ""
		f.done = true
		if c := CleanSentinels(chunk); c != "" {
			return []string{c}
		}
		return nil
	}

	if len(f.buf) > 4*emitKeep {
		flush := f.buf[:len(f.buf)-emitKeep]
		f.buf = f.buf[len(f.buf)-emitKeep:]
		if c := CleanSentinels(flush); c != "" {
			return []string{c}
		}
	}
	return nil
}

// Finish signals end of input. If the stream ended inside the final channel
// without an exit marker, the cleaned remainder is returned as a last chunk;
// end of input counts as a successful terminator.
func (f *FinalFilter) Finish() string {
	if f.done || !f.inFinal || f.buf == "" {
		f.done = true
		return ""
	}
	chunk := CleanSentinels(f.buf)
	f.buf = ""
	f.done = true
	return chunk
}

// Done reports whether the filter has seen an exit marker (or Finish) and
// will produce no further output.
func (f *FinalFilter) Done() bool {
	return f.done
}

// FilterFinal wraps a fragment channel, yielding only cleaned final-channel
// chunks. The returned channel is closed once an exit marker is seen or the
// input channel is drained.
func FilterFinal(fragments <-chan string) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		f := NewFinalFilter()
		for frag := range fragments {
			for _, chunk := range f.Feed(frag) {
				out <- chunk
			}
			if f.Done() {
				// Drain so the producer goroutine can finish.
				for range fragments {
				}
				return
			}
		}
		if tail := f.Finish(); tail != "" {
			out <- tail
		}
	}()
	return out
}
