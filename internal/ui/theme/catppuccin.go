package theme

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha.
var (
	Mantle   = lipgloss.Color("#181825")
	Surface1 = lipgloss.Color("#45475a")
	Overlay0 = lipgloss.Color("#6c7086")
	Text     = lipgloss.Color("#cdd6f4")
	Subtext0 = lipgloss.Color("#a6adc8")
	Lavender = lipgloss.Color("#b4befe")
	Sapphire = lipgloss.Color("#74c7ec")
	Peach    = lipgloss.Color("#fab387")

	// Pane frames the trial surface.
	Pane = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Surface1).
		Background(Mantle).
		Foreground(Text).
		Padding(1)

	Title = lipgloss.NewStyle().Foreground(Sapphire).Bold(true)
	Muted = lipgloss.NewStyle().Foreground(Subtext0)
	Hot   = lipgloss.NewStyle().Foreground(Peach).Bold(true)

	// Baseline is the annotation timeline; Marker is a response on it.
	Baseline = lipgloss.NewStyle().Foreground(Overlay0)
	Marker   = lipgloss.NewStyle().Foreground(Peach).Bold(true)
)
