package engine

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"
)

const sampleStream = `data: {"id":"c1","object":"text_completion","model":"m","choices":[{"index":0,"text":"Hel","finish_reason":null}]}

data: {"id":"c1","object":"text_completion","model":"m","choices":[{"index":0,"text":"lo","finish_reason":null}]}

data: {"id":"c1","object":"text_completion","model":"m","choices":[{"index":0,"text":"","finish_reason":"stop"}]}

data: [DONE]

`

func TestParseSSEStream(t *testing.T) {
	events := ParseSSEStream(context.Background(), strings.NewReader(sampleStream))

	var texts []string
	var sawDone bool
	for ev := range events {
		if ev.Err != nil {
			t.Fatalf("unexpected error: %v", ev.Err)
		}
		if ev.Done {
			sawDone = true
			continue
		}
		texts = append(texts, ev.Text())
	}
	if !sawDone {
		t.Error("missing [DONE] event")
	}
	if got := strings.Join(texts, ""); got != "Hello" {
		t.Errorf("accumulated %q, want %q", got, "Hello")
	}
}

func TestParseSSEStreamIgnoresNonDataLines(t *testing.T) {
	body := ": keepalive\n\nevent: ping\n\n" + sampleStream
	got, err := AccumulateText(ParseSSEStream(context.Background(), strings.NewReader(body)))
	if err != nil {
		t.Fatalf("accumulate: %v", err)
	}
	if got != "Hello" {
		t.Errorf("got %q", got)
	}
}

func TestParseSSEStreamMalformedChunk(t *testing.T) {
	body := "data: {not json}\n\n"
	events := ParseSSEStream(context.Background(), strings.NewReader(body))

	var gotErr error
	for ev := range events {
		if ev.Err != nil {
			gotErr = ev.Err
		}
	}
	if gotErr == nil {
		t.Error("expected parse error for malformed chunk")
	}
}

func TestParseSSEStreamStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	// No receiver: the parser blocks on its first send until cancelled.
	events := ParseSSEStream(ctx, strings.NewReader(sampleStream))
	cancel()

	closed := make(chan struct{})
	go func() {
		for range events {
		}
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("parser goroutine kept running after cancellation")
	}
}

func TestCancelledStreamsDoNotAccumulateGoroutines(t *testing.T) {
	const rounds = 20
	before := runtime.NumGoroutine()

	for i := 0; i < rounds; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		events := ParseSSEStream(ctx, strings.NewReader(sampleStream))
		<-events // take one event, then abandon the stream
		cancel()
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= before+2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("goroutines grew from %d to %d after %d cancelled streams",
		before, runtime.NumGoroutine(), rounds)
}

func TestFragments(t *testing.T) {
	errOut := make(chan error, 1)
	frags := Fragments(ParseSSEStream(context.Background(), strings.NewReader(sampleStream)), errOut)

	var parts []string
	for f := range frags {
		parts = append(parts, f)
	}
	select {
	case err := <-errOut:
		t.Fatalf("unexpected error: %v", err)
	default:
	}
	// The empty finish_reason chunk carries no text and is dropped.
	if len(parts) != 2 || parts[0] != "Hel" || parts[1] != "lo" {
		t.Errorf("fragments = %q", parts)
	}
}

func TestFragmentsPropagatesError(t *testing.T) {
	errOut := make(chan error, 1)
	frags := Fragments(ParseSSEStream(context.Background(), strings.NewReader("data: bad\n\n")), errOut)
	for range frags {
	}
	if err := <-errOut; err == nil {
		t.Error("expected propagated error")
	}
}

func TestAccumulateText(t *testing.T) {
	got, err := AccumulateText(ParseSSEStream(context.Background(), strings.NewReader(sampleStream)))
	if err != nil {
		t.Fatalf("accumulate: %v", err)
	}
	if got != "Hello" {
		t.Errorf("got %q, want %q", got, "Hello")
	}
}
