// Package ui renders tables and interactive prompts for the command line.
package ui

import "github.com/charmbracelet/lipgloss"

// Color palette
// - Default (white/black): primary text
// - Accent (soft purple #A78BFA): slugs, URLs, interactive elements
// - Muted (gray): secondary info, hints
// - No colored success/error - unicode symbols only

var (
	// Accent style for slugs, URLs, highlights
	Accent = lipgloss.NewStyle().Foreground(lipgloss.Color("#A78BFA"))

	// Muted style for secondary info and hints
	Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))

	// Bold style for emphasis and table headers
	Bold = lipgloss.NewStyle().Bold(true)
)

// Hint renders a muted inline hint like "[y/N]".
func Hint(msg string) string {
	return Muted.Render(msg)
}
