package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// Main application frame
	App = lipgloss.NewStyle().
		Padding(0, 1)

	// Title bar
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#4F4FB7")).
			Padding(0, 1)

	// Pane frames; the focused one gets the accent colour
	PaneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#626262")).
			Padding(0, 1)

	FocusedPaneStyle = PaneStyle.
				BorderForeground(lipgloss.Color("#7B61FF"))

	PathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#959595"))

	// Status style for info messages
	StatusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#959595"))

	// Log line colours
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F"))

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAF00"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5FD75F"))

	// Listing rows
	CursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#4F4FB7"))

	SelectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#73F59F")).
			Bold(true)

	FileStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC"))

	DirectoryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#81A1C1")).
			Bold(true)

	// Modal prompts
	PromptStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FFAF00")).
			Padding(0, 1)

	AlertStyle = PromptStyle.
			BorderForeground(lipgloss.Color("#FF5F5F"))

	LogStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(lipgloss.Color("#626262"))
)
