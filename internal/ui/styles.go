package ui

import "github.com/charmbracelet/lipgloss"

// Colors used throughout the dashboard.
var (
	ColorRed     = lipgloss.Color("#FF5F5F")
	ColorGreen   = lipgloss.Color("#5FD75F")
	ColorYellow  = lipgloss.Color("#FFD75F")
	ColorCyan    = lipgloss.Color("#5FD7FF")
	ColorMagenta = lipgloss.Color("#D787FF")
	ColorGray    = lipgloss.Color("#808080")
	ColorDimGray = lipgloss.Color("#4E4E4E")
	ColorWhite   = lipgloss.Color("#EEEEEE")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan)

	PaneTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite)

	PaneTitleActiveStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorCyan)

	LiveBadgeStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	ScrollBadgeStyle = lipgloss.NewStyle().
				Foreground(ColorYellow).
				Bold(true)

	NoFileStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Italic(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorMagenta)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	DividerStyle = lipgloss.NewStyle().
			Foreground(ColorDimGray)

	FooterKeyStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)

	FooterDescStyle = lipgloss.NewStyle().
			Foreground(ColorGray)
)

// Per-kind event styles.
var (
	UserStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	ThinkingStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Italic(true)

	TextStyle = lipgloss.NewStyle().
			Foreground(ColorWhite)

	ToolStyle = lipgloss.NewStyle().
			Foreground(ColorCyan)

	CompleteStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	SessionStartStyle = lipgloss.NewStyle().
				Foreground(ColorMagenta).
				Bold(true)

	HistoryStyle = lipgloss.NewStyle().
			Foreground(ColorDimGray)
)
