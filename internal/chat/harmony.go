package chat

import "strings"

// Harmony sentinel vocabulary. These literals must match the harmony format
// convention exactly; generation with a harmony-rendered prompt stops on the
// exit markers.
const (
	harmonyStart   = "<|start|>"
	harmonyMessage = "<|message|>"
	harmonyEnd     = "<|end|>"
)

// DefaultStopSequences returns the stop sequences used for harmony-rendered
// prompts when the caller supplies none.
func DefaultStopSequences() []string {
	return []string{"<|end|>", "<|start|>"}
}

// RenderHarmony renders messages in the harmony turn format:
//
//	<|start|>role<|message|>content<|end|>
//
// with a trailing generation cue for the assistant. It is the built-in
// fallback used when no external harmony provider is registered.
func RenderHarmony(msgs []Turn) (string, error) {
	var b strings.Builder
	for _, m := range msgs {
		role := m.Role
		if role == "" {
			role = RoleUser
		}
		b.WriteString(harmonyStart)
		b.WriteString(role)
		b.WriteString(harmonyMessage)
		b.WriteString(m.Content)
		b.WriteString(harmonyEnd)
		b.WriteString("\n")
	}
	b.WriteString(harmonyStart)
	b.WriteString(RoleAssistant)
	return b.String(), nil
}

// harmonyProvider exposes the built-in renderer through the registry.
type harmonyProvider struct{}

func (harmonyProvider) Resolve() (RenderFunc, error) {
	return RenderHarmony, nil
}

// ResolveAttr supports the conventional entry-point names an override
// directive may ask for.
func (harmonyProvider) ResolveAttr(attr string) (RenderFunc, error) {
	switch attr {
	case "render", "render_chat", "render_messages", "format", "format_messages":
		return RenderHarmony, nil
	}
	return nil, ErrRendererUnavailable
}
