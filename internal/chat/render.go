package chat

import (
	"errors"
	"fmt"
	"os"
)

// Mode selects how conversation history is rendered into prompt text.
type Mode string

const (
	// ModeAuto tries harmony, then the tokenizer chat template, then plain.
	ModeAuto Mode = "auto"
	// ModeHarmony renders with a discovered harmony-format renderer.
	ModeHarmony Mode = "harmony"
	// ModeTemplate renders with the tokenizer's chat template.
	ModeTemplate Mode = "hf"
	// ModePlain renders a minimal two-line prompt and never fails.
	ModePlain Mode = "plain"
)

// ParseMode validates a mode string from a flag or config value.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAuto, ModeHarmony, ModeTemplate, ModePlain:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown chat mode %q (want auto, harmony, hf or plain)", s)
}

// Renderer failure taxonomy. Explicitly requested modes surface these to the
// caller; ModeAuto swallows both as fallback signals.
var (
	ErrRendererUnavailable = errors.New("harmony renderer unavailable")
	ErrTemplateUnavailable = errors.New("tokenizer chat template unavailable")
)

// TemplateRenderer is the optional tokenizer template capability. Absence is
// tolerated: a nil TemplateRenderer means ModeTemplate is unavailable.
type TemplateRenderer interface {
	// ApplyChatTemplate renders the messages with the model's own chat
	// template, appending the generation cue when addGenerationPrompt is set.
	ApplyChatTemplate(msgs []Turn, addGenerationPrompt bool) (string, error)
}

// OverrideEnv names the environment variable holding the renderer override
// directive ("name[:attr]"). Empty or unset means auto-discovery.
const OverrideEnv = "MLXLM_RENDERER"

// Selector renders prompts for a requested mode, falling back through the
// priority chain in ModeAuto. The renderer is looked up fresh on every render
// call; nothing is memoized across calls.
type Selector struct {
	// Registry to discover harmony renderers from. Nil means DefaultRegistry.
	Registry *Registry
	// Template is the tokenizer chat template capability, may be nil.
	Template TemplateRenderer
	// Override returns the current override directive. Nil reads OverrideEnv.
	Override func() string
}

func (s *Selector) registry() *Registry {
	if s.Registry != nil {
		return s.Registry
	}
	return DefaultRegistry()
}

func (s *Selector) override() string {
	if s.Override != nil {
		return s.Override()
	}
	return os.Getenv(OverrideEnv)
}

// Render produces the prompt text for one generation call.
func (s *Selector) Render(mode Mode, systemPrompt string, history []Turn) (string, error) {
	switch mode {
	case ModePlain:
		return RenderPlain(systemPrompt, history), nil
	case ModeHarmony:
		return s.renderHarmony(systemPrompt, history)
	case ModeTemplate:
		return s.renderTemplate(systemPrompt, history)
	}

	// Auto: first success wins, plain cannot fail.
	if out, err := s.renderHarmony(systemPrompt, history); err == nil {
		return out, nil
	}
	if out, err := s.renderTemplate(systemPrompt, history); err == nil {
		return out, nil
	}
	return RenderPlain(systemPrompt, history), nil
}

func (s *Selector) renderHarmony(systemPrompt string, history []Turn) (string, error) {
	fn, err := s.registry().Discover(s.override())
	if err != nil {
		return "", err
	}
	out, err := fn(Compose(systemPrompt, history))
	if err != nil {
		return "", fmt.Errorf("harmony renderer: %w", err)
	}
	return out, nil
}

func (s *Selector) renderTemplate(systemPrompt string, history []Turn) (string, error) {
	if s.Template == nil {
		return "", ErrTemplateUnavailable
	}
	out, err := s.Template.ApplyChatTemplate(Compose(systemPrompt, history), true)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateUnavailable, err)
	}
	return out, nil
}

// RenderPlain renders the infallible two-line prompt from the system prompt
// and the most recent user turn.
func RenderPlain(systemPrompt string, history []Turn) string {
	return fmt.Sprintf("%s\n\nUser: %s\nAssistant:", systemPrompt, LastUser(history))
}
