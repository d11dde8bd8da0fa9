package tui

import (
	"context"

	"qrpdf/internal/notify"
	"qrpdf/internal/session"
	"qrpdf/internal/tui/messages"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the scanner screen until the user quits or ctx is cancelled.
// Losing terminal focus hides the session. The scanner is stopped on exit.
func Run(ctx context.Context, ctrl *session.Controller, presenter *notify.Presenter, opts ...tea.ProgramOption) error {
	m := New(ctx, ctrl, presenter)

	options := append([]tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithReportFocus(),
		tea.WithContext(ctx),
	}, opts...)
	p := tea.NewProgram(m, options...)

	ctrl.OnEvent(func(ev session.Event) {
		p.Send(messages.EventMsg{Event: ev})
	})
	// The model itself shows and dismisses notifications from Update, so
	// this send must not wait for the event loop.
	presenter.OnChange(func() {
		go p.Send(messages.NotifyMsg{})
	})

	_, err := p.Run()
	ctrl.Stop(context.Background())
	return err
}
