package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/stonkers/pkg/wheel"
)

var (
	// Color palette
	Primary    = lipgloss.Color("#FF6B9D")
	Secondary  = lipgloss.Color("#C792EA")
	Success    = lipgloss.Color("#C3E88D")
	Warning    = lipgloss.Color("#FFCB6B")
	Error      = lipgloss.Color("#F07178")
	Info       = lipgloss.Color("#82AAFF")
	Muted      = lipgloss.Color("#546E7A")
	Foreground = lipgloss.Color("#EEFFFF")

	RoundedBorder = lipgloss.RoundedBorder()
)

// Base styles
var (
	// Title style for headings
	TitleStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true).
			MarginBottom(1)

	// Ticker heading in the results
	TickerStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	TextStyle = lipgloss.NewStyle().
			Foreground(Foreground)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	// Card style
	CardStyle = lipgloss.NewStyle().
			Border(RoundedBorder).
			BorderForeground(Secondary).
			Padding(0, 1).
			MarginBottom(1)

	// Status styles
	StatusRunning = lipgloss.NewStyle().
			Foreground(Info).
			Bold(true)

	StatusCompleted = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	StatusError = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(Primary)

	// Help text
	HelpStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true).
			MarginTop(1)

	PromptStyle = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)
)

// StatusStyle picks the style of a wheel progress status.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "loading", "running":
		return StatusRunning
	case "done":
		return StatusCompleted
	case "error":
		return StatusError
	default:
		return MutedStyle
	}
}

// MessageStyle picks the style of a wheel message.
func MessageStyle(kind wheel.Kind) lipgloss.Style {
	switch kind {
	case wheel.KindSkip:
		return MutedStyle
	case wheel.KindWarning:
		return WarningStyle
	case wheel.KindTarget:
		return StatusRunning
	case wheel.KindWrite:
		return StatusCompleted
	default:
		return TextStyle
	}
}
