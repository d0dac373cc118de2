// Package ux provides terminal styling for CLI output.
package ux

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/CreamyCappuccino/mlxlm/internal/config"
)

// Theme defines the color scheme for styled output.
type Theme struct {
	UserPrompt  lipgloss.Color
	ModelOutput lipgloss.Color
	Error       lipgloss.Color
	Success     lipgloss.Color
	Warning     lipgloss.Color
	Dim         lipgloss.Color
}

// DefaultTheme matches the stock config colors.
var DefaultTheme = Theme{
	UserPrompt:  lipgloss.Color("15"),
	ModelOutput: lipgloss.Color("255"),
	Error:       lipgloss.Color("9"),
	Success:     lipgloss.Color("10"),
	Warning:     lipgloss.Color("11"),
	Dim:         lipgloss.Color("8"),
}

// ThemeFromConfig builds a Theme from the persisted color settings,
// falling back to defaults for unset values.
func ThemeFromConfig(colors config.Colors) Theme {
	t := DefaultTheme
	if colors.UserPrompt != "" {
		t.UserPrompt = lipgloss.Color(colors.UserPrompt)
	}
	if colors.ModelOutput != "" {
		t.ModelOutput = lipgloss.Color(colors.ModelOutput)
	}
	if colors.Error != "" {
		t.Error = lipgloss.Color(colors.Error)
	}
	if colors.Success != "" {
		t.Success = lipgloss.Color(colors.Success)
	}
	if colors.Warning != "" {
		t.Warning = lipgloss.Color(colors.Warning)
	}
	return t
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Prompt  lipgloss.Style
	Output  lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Dim     lipgloss.Style
	Header  lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Prompt:  lipgloss.NewStyle().Bold(true).Foreground(t.UserPrompt),
		Output:  lipgloss.NewStyle().Foreground(t.ModelOutput),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(t.Error),
		Success: lipgloss.NewStyle().Foreground(t.Success),
		Warning: lipgloss.NewStyle().Foreground(t.Warning),
		Dim:     lipgloss.NewStyle().Foreground(t.Dim),
		Header:  lipgloss.NewStyle().Bold(true).Foreground(t.Success),
	}
}
