package components

import (
	"qrpdf/internal/tui/styles"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// StatusBar shows the session status with a spinner while a camera
// operation is pending.
type StatusBar struct {
	text    string
	spinner spinner.Model
	loading bool
}

func NewStatusBar() *StatusBar {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Theme.Info

	return &StatusBar{spinner: s}
}

func (s *StatusBar) SetLoading(loading bool) {
	s.loading = loading
}

func (s *StatusBar) Loading() bool {
	return s.loading
}

func (s *StatusBar) SetText(text string) {
	s.text = text
}

// Tick starts the spinner animation.
func (s *StatusBar) Tick() tea.Cmd {
	return s.spinner.Tick
}

func (s *StatusBar) Update(msg tea.Msg) tea.Cmd {
	if !s.loading {
		return nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return cmd
}

// Frame returns the current spinner frame, or "" when idle.
func (s *StatusBar) Frame() string {
	if !s.loading {
		return ""
	}
	return s.spinner.View()
}

func (s *StatusBar) View() string {
	if s.text == "" && !s.loading {
		return ""
	}
	if s.loading {
		return styles.Theme.Info.Render(s.spinner.View() + " " + s.text)
	}
	return styles.Theme.Info.Render(s.text)
}
