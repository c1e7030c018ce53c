package utils

import (
	"github.com/charmbracelet/lipgloss"
)

// ColourScheme is the subset of the Catppuccin Mocha palette the screens use.
type ColourScheme struct {
	Red      string
	Peach    string
	Yellow   string
	Green    string
	Teal     string
	Blue     string
	Lavender string
	Mauve    string
	Text     string
	Subtext0 string
	Overlay1 string
	Overlay0 string
	Surface1 string
	Surface0 string
	Base     string
}

var Colours = ColourScheme{
	Red:      "#f38ba8",
	Peach:    "#fab387",
	Yellow:   "#f9e2af",
	Green:    "#a6e3a1",
	Teal:     "#94e2d5",
	Blue:     "#89b4fa",
	Lavender: "#b4befe",
	Mauve:    "#cba6f7",
	Text:     "#cdd6f4",
	Subtext0: "#a6adc8",
	Overlay1: "#7f849c",
	Overlay0: "#6c7086",
	Surface1: "#45475a",
	Surface0: "#313244",
	Base:     "#1e1e2e",
}

// Styles shared by the list, detail and form screens.
var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(Colours.Text)).
			Background(lipgloss.Color(Colours.Surface0)).
			Padding(0, 1)

	SelectedRowStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(Colours.Text)).
				Background(lipgloss.Color(Colours.Surface1)).
				Bold(true)

	RowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(Colours.Text))

	MutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(Colours.Overlay1))

	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(Colours.Lavender)).
			Bold(true)

	ErrorTextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(Colours.Red))

	FocusedInputStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color(Colours.Blue)).
				Padding(0, 1)

	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(Colours.Surface1)).
			Padding(0, 1)

	InvalidInputStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color(Colours.Red)).
				Padding(0, 1)

	WarningBoxStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(Colours.Text)).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(Colours.Red)).
			Padding(1, 2)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(Colours.Yellow))

	HelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(Colours.Overlay0))
)
