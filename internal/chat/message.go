// Package chat renders conversation history into model prompts and filters
// streamed harmony output down to the user-visible answer channel.
package chat

// Turn is a single conversation turn.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Roles used in conversation history.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Compose converts a system prompt and conversation history into the
// role/content record list passed to renderers. A non-empty system prompt is
// prefixed as a synthetic system turn.
func Compose(systemPrompt string, history []Turn) []Turn {
	msgs := make([]Turn, 0, len(history)+1)
	if systemPrompt != "" {
		msgs = append(msgs, Turn{Role: RoleSystem, Content: systemPrompt})
	}
	msgs = append(msgs, history...)
	return msgs
}

// LastUser returns the content of the most recent user turn, or "" if none.
func LastUser(history []Turn) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleUser {
			return history[i].Content
		}
	}
	return ""
}
