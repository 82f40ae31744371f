package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/DoyleJ11/stars-party/internal/notify"
)

// Colors
var (
	colorAccent    = lipgloss.Color("#7AA2F7")
	colorWhite     = lipgloss.Color("#FFFFFF")
	colorDim       = lipgloss.Color("#6B7280")
	colorSuccess   = lipgloss.Color("#10B981")
	colorWarning   = lipgloss.Color("#F59E0B")
	colorError     = lipgloss.Color("#EF4444")
	colorSeparator = lipgloss.Color("#4B5563")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent)

	LetterStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorDim)

	SelectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite)

	ItemStyle = lipgloss.NewStyle().
			Foreground(colorWhite)

	// Roster entries already seated in the party
	InPartyStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	DimmedStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	HelpStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	WarningStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	InfoStyle = lipgloss.NewStyle().
			Foreground(colorAccent)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)

	SlotStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSeparator).
			Width(14).
			Padding(0, 1)

	SelectedSlotStyle = SlotStyle.
				BorderForeground(colorAccent)

	PromptStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(colorWarning).
			Padding(0, 1)

	SeparatorStyle = lipgloss.NewStyle().
			Foreground(colorSeparator)

	KeyStyle = lipgloss.NewStyle().
			Foreground(colorWhite)
)

// Cursor returns the selection cursor
func Cursor() string {
	return lipgloss.NewStyle().
		Foreground(colorAccent).
		Bold(true).
		Render("› ")
}

func NoCursor() string {
	return "  "
}

func RenderSeparator(width int) string {
	if width <= 0 {
		width = 60
	}
	return SeparatorStyle.Render(strings.Repeat("─", width))
}

// RenderKeyBinding formats a key binding with highlighted key
func RenderKeyBinding(key, description string) string {
	return KeyStyle.Render(key) + " " + DimmedStyle.Render(description)
}

func toastStyle(level notify.Level) lipgloss.Style {
	switch level {
	case notify.LevelSuccess:
		return SuccessStyle
	case notify.LevelWarning:
		return WarningStyle
	case notify.LevelError:
		return ErrorStyle
	default:
		return InfoStyle
	}
}

func statusStyle(state notify.ConnState) lipgloss.Style {
	switch state {
	case notify.StateConnected:
		return SuccessStyle
	case notify.StateReconnecting, notify.StateConnecting:
		return WarningStyle
	default:
		return ErrorStyle
	}
}
