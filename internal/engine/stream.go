package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/CreamyCappuccino/mlxlm/pkg/api"
)

// StreamEvent represents a parsed SSE event from the model server.
type StreamEvent struct {
	Chunk *api.CompletionChunk
	Done  bool
	Err   error
}

// Text returns the fragment carried by the event, if any.
func (ev StreamEvent) Text() string {
	if ev.Chunk == nil {
		return ""
	}
	var b strings.Builder
	for _, choice := range ev.Chunk.Choices {
		b.WriteString(choice.Text)
	}
	return b.String()
}

// ParseSSEStream reads an SSE stream and sends parsed events to a channel.
// The channel is closed when the stream ends, an error occurs, or ctx is
// cancelled; cancellation also unblocks a send with no receiver left.
func ParseSSEStream(ctx context.Context, r io.Reader) <-chan StreamEvent {
	ch := make(chan StreamEvent)
	send := func(ev StreamEvent) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		select {
		case ch <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")

			if data == "[DONE]" {
				send(StreamEvent{Done: true})
				return
			}

			var chunk api.CompletionChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				send(StreamEvent{Err: err})
				return
			}
			if !send(StreamEvent{Chunk: &chunk}) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			send(StreamEvent{Err: err})
		}
	}()
	return ch
}

// Fragments adapts a stream-event channel into a channel of raw text
// fragments, suitable for the final-channel filter. The first error or the
// done marker terminates the output; the trailing error, if any, is written
// to errOut (buffered, capacity 1).
func Fragments(events <-chan StreamEvent, errOut chan<- error) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		for ev := range events {
			if ev.Err != nil {
				errOut <- ev.Err
				return
			}
			if ev.Done {
				return
			}
			if text := ev.Text(); text != "" {
				out <- text
			}
		}
	}()
	return out
}

// AccumulateText collects streaming events into the complete generated text.
func AccumulateText(events <-chan StreamEvent) (string, error) {
	var b strings.Builder
	for ev := range events {
		if ev.Err != nil {
			return b.String(), ev.Err
		}
		if ev.Done {
			break
		}
		b.WriteString(ev.Text())
	}
	return b.String(), nil
}
