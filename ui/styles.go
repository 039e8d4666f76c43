package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	dimColor       = lipgloss.Color("7")
	accentColor    = lipgloss.Color("12")
	successColor   = lipgloss.Color("10")
	warningColor   = lipgloss.Color("11")
	dangerColor    = lipgloss.Color("9")
	highlightColor = lipgloss.Color("13")

	// User message style
	UserStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)
	// NO .Background() = transparent!

	// Agent message style
	AgentStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	// Local error/notice records
	SystemStyle = lipgloss.NewStyle().
			Foreground(warningColor).
			Bold(true)

	// Records whose sender could not be classified
	UnknownStyle = lipgloss.NewStyle().
			Foreground(highlightColor).
			Italic(true)

	// Timestamp and secondary text
	DimStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	// Failed sends and error notices
	DangerStyle = lipgloss.NewStyle().
			Foreground(dangerColor).
			Bold(true)

	// Title style
	TitleStyle = lipgloss.NewStyle().
			Bold(true)

	// Status bar style
	StatusStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	CurrentStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)
)

// FormatFooter formats a footer string with alternating keys and descriptions.
// Usage: FormatFooter("j/k", "Navigate", "Enter", "Select", "Esc", "Close")
func FormatFooter(parts ...string) string {
	descStyle := lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	var result []string
	for i := 0; i < len(parts); i += 2 {
		if i+1 < len(parts) {
			result = append(result, parts[i]+" "+descStyle.Render(parts[i+1]))
		}
	}
	return strings.Join(result, "  ")
}
