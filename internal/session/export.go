package session

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/CreamyCappuccino/mlxlm/internal/chat"
)

// ExportFormat names an export output format.
type ExportFormat string

const (
	FormatMarkdown ExportFormat = "md"
	FormatJSON     ExportFormat = "json"
	FormatText     ExportFormat = "txt"
)

// ParseExportFormat validates a format name.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(s)) {
	case FormatMarkdown:
		return FormatMarkdown, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatText:
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown export format %q (want md, json, or txt)", s)
}

// Export renders the session in the requested format.
func Export(s *Session, format ExportFormat) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(s, "", "  ")
	case FormatMarkdown:
		return exportMarkdown(s), nil
	case FormatText:
		return exportText(s), nil
	}
	return nil, fmt.Errorf("unknown export format %q", format)
}

func exportMarkdown(s *Session) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", s.Title())
	fmt.Fprintf(&b, "- Model: %s\n", s.Model)
	fmt.Fprintf(&b, "- Created: %s\n", s.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "- Messages: %d\n\n", s.MessageCount)

	for _, turn := range s.History {
		switch turn.Role {
		case chat.RoleUser:
			fmt.Fprintf(&b, "**User:**\n\n%s\n\n", turn.Content)
		case chat.RoleAssistant:
			fmt.Fprintf(&b, "**Assistant:**\n\n%s\n\n", turn.Content)
		default:
			fmt.Fprintf(&b, "**%s:**\n\n%s\n\n", turn.Role, turn.Content)
		}
	}
	return []byte(b.String())
}

func exportText(s *Session) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\nModel: %s\nCreated: %s\n\n",
		s.Title(), s.Model, s.CreatedAt.Format("2006-01-02 15:04"))

	for _, turn := range s.History {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", turn.Role, turn.Content)
	}
	return []byte(b.String())
}
