package styles

import (
	"qrpdf/internal/config"

	"github.com/charmbracelet/lipgloss"
)

// ThemeStyles is the set of styles the views render with.
type ThemeStyles struct {
	App       lipgloss.Style
	Title     lipgloss.Style
	Label     lipgloss.Style
	Value     lipgloss.Style
	Help      lipgloss.Style
	Enabled   lipgloss.Style
	Disabled  lipgloss.Style
	Success   lipgloss.Style
	Error     lipgloss.Style
	Info      lipgloss.Style
	Card      lipgloss.Style
	Toast     lipgloss.Style
	Leaving   lipgloss.Style
	Banner    lipgloss.Style
	Highlight lipgloss.Style
}

// Theme is the active style set. It starts as the default theme.
var Theme = NewTheme(config.GetTheme("default"))

// NewTheme builds styles from a theme color table as returned by
// config.GetTheme.
func NewTheme(colors map[string]string) ThemeStyles {
	c := func(name string) lipgloss.Color {
		return lipgloss.Color(colors[name])
	}
	return ThemeStyles{
		App: lipgloss.NewStyle().
			Padding(1, 2),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(c("primary")).
			MarginBottom(1),
		Label: lipgloss.NewStyle().
			Foreground(c("info")).
			Width(8),
		Value: lipgloss.NewStyle().
			Foreground(c("emphasis")),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5A9")),
		Enabled: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(c("primary")).
			Padding(0, 1),
		Disabled: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Padding(0, 1),
		Success: lipgloss.NewStyle().
			Foreground(c("success")),
		Error: lipgloss.NewStyle().
			Foreground(c("error")),
		Info: lipgloss.NewStyle().
			Foreground(c("info")),
		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(c("border")).
			Padding(0, 1).
			Width(52),
		Toast: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#2ecc71")).
			Padding(0, 2),
		Leaving: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#2ecc71")).
			Faint(true).
			Padding(0, 2),
		Banner: lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(c("error")).
			Foreground(c("error")).
			Padding(0, 1),
		Highlight: lipgloss.NewStyle().
			Foreground(c("warning")),
	}
}

// Apply switches the active theme.
func Apply(name string) {
	Theme = NewTheme(config.GetTheme(name))
}

// ApplyConfig switches the active theme to the colors of cfg.
func ApplyConfig(cfg *config.Config) {
	colors := config.GetTheme(cfg.Theme.Name)
	override := map[string]string{
		"primary":  cfg.Theme.Primary,
		"success":  cfg.Theme.Success,
		"warning":  cfg.Theme.Warning,
		"error":    cfg.Theme.Error,
		"info":     cfg.Theme.Info,
		"emphasis": cfg.Theme.Emphasis,
		"border":   cfg.Theme.Border,
	}
	merged := make(map[string]string, len(colors))
	for k, v := range colors {
		merged[k] = v
		if o := override[k]; o != "" {
			merged[k] = o
		}
	}
	Theme = NewTheme(merged)
}
