package ui

import "github.com/charmbracelet/lipgloss"

// Styles holds every style the terminal client renders with.
type Styles struct {
	Header    lipgloss.Style
	Tab       lipgloss.Style
	ActiveTab lipgloss.Style
	Title     lipgloss.Style
	Muted     lipgloss.Style
	Selected  lipgloss.Style
	Done      lipgloss.Style
	Modal     lipgloss.Style
	Focused   lipgloss.Style
	Info      lipgloss.Style
	Error     lipgloss.Style
	Help      lipgloss.Style
	BarFull   lipgloss.Style
	BarEmpty  lipgloss.Style
}

var (
	colorAccent = lipgloss.AdaptiveColor{Light: "#5A3FC0", Dark: "#A78BFA"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	colorGreen  = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"}
	colorRed    = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
)

func DefaultStyles() Styles {
	return Styles{
		Header:    lipgloss.NewStyle().Bold(true).Foreground(colorAccent).MarginBottom(1),
		Tab:       lipgloss.NewStyle().Padding(0, 1).Foreground(colorMuted),
		ActiveTab: lipgloss.NewStyle().Padding(0, 1).Bold(true).Underline(true).Foreground(colorAccent),
		Title:     lipgloss.NewStyle().Bold(true),
		Muted:     lipgloss.NewStyle().Foreground(colorMuted),
		Selected:  lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
		Done:      lipgloss.NewStyle().Foreground(colorGreen),
		Modal: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(0, 1).
			MarginTop(1),
		Focused:  lipgloss.NewStyle().Foreground(colorAccent),
		Info:     lipgloss.NewStyle().Foreground(colorGreen),
		Error:    lipgloss.NewStyle().Foreground(colorRed),
		Help:     lipgloss.NewStyle().Foreground(colorMuted).MarginTop(1),
		BarFull:  lipgloss.NewStyle().Foreground(colorAccent),
		BarEmpty: lipgloss.NewStyle().Foreground(colorMuted),
	}
}
