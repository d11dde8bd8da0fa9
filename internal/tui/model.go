package tui

import (
	"context"

	"qrpdf/internal/log"
	"qrpdf/internal/notify"
	"qrpdf/internal/session"
	"qrpdf/internal/tui/components"
	"qrpdf/internal/tui/messages"
	"qrpdf/internal/tui/views"
	"qrpdf/pkg/types"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Model is the scanner screen. Session state is owned by the controller;
// the model keeps the last snapshot it was sent and renders it.
type Model struct {
	ctx       context.Context
	ctrl      *session.Controller
	presenter *notify.Presenter

	keys      types.KeyMap
	help      help.Model
	statusBar *components.StatusBar

	snapshot session.Snapshot
	notice   string
	showHelp bool
}

func New(ctx context.Context, ctrl *session.Controller, presenter *notify.Presenter) *Model {
	return &Model{
		ctx:       ctx,
		ctrl:      ctrl,
		presenter: presenter,
		keys:      types.DefaultKeyMap(),
		help:      help.New(),
		statusBar: components.NewStatusBar(),
		snapshot:  ctrl.Snapshot(),
	}
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return nil
}

// View implements tea.Model
func (m *Model) View() string {
	return views.RenderMainView(m)
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.BlurMsg:
		return m, m.run("hide", func(ctx context.Context) error {
			m.ctrl.Hide(ctx)
			return nil
		})

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case messages.EventMsg:
		return m, m.handleEvent(msg.Event)

	case messages.OperationDoneMsg:
		if msg.Err != nil {
			log.LogWithFields(log.F("op", msg.Op), log.F("error", msg.Err)).Debug("Operation finished with error")
		}

	case messages.DownloadDoneMsg:
		if msg.Receipt != nil {
			log.LogWithFields(log.F("locations", msg.Receipt.Locations)).Debug("Download finished")
		}

	case spinner.TickMsg:
		return m, m.statusBar.Update(msg)
	}
	return m, nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	triggers := session.TriggersFor(m.snapshot)

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp

	case key.Matches(msg, m.keys.Dismiss):
		m.notice = ""
		m.presenter.Dismiss()

	case key.Matches(msg, m.keys.Start):
		if triggers.Start {
			return m, m.run("start", m.ctrl.Start)
		}
	case key.Matches(msg, m.keys.Stop):
		if triggers.Stop {
			return m, m.run("stop", m.ctrl.Stop)
		}
	case key.Matches(msg, m.keys.Switch):
		if triggers.Switch {
			return m, m.run("switch", m.ctrl.SwitchCamera)
		}
	case key.Matches(msg, m.keys.Reset):
		if triggers.Reset {
			return m, m.run("reset", func(context.Context) error { return m.ctrl.Reset() })
		}
	case key.Matches(msg, m.keys.Download):
		if triggers.Download {
			return m, m.download()
		}
	}
	return m, nil
}

// handleEvent applies a session event. Blocking errors become the notice
// banner.
func (m *Model) handleEvent(ev session.Event) tea.Cmd {
	m.snapshot = ev.Snapshot

	switch {
	case ev.Blocking():
		m.notice = ev.Message
	case ev.Toast():
		m.presenter.Show(ev.Message)
	}
	if ev.Kind == session.EventAccepted || (ev.Kind == session.EventStateChanged && ev.Snapshot.Status == session.Running) {
		m.notice = ""
	}

	wasLoading := m.statusBar.Loading()
	m.statusBar.SetLoading(ev.Snapshot.Pending)
	if ev.Snapshot.Pending && !wasLoading {
		return m.statusBar.Tick()
	}
	return nil
}

func (m *Model) run(op string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return messages.OperationDoneMsg{Op: op, Err: fn(ctx)}
	}
}

func (m *Model) download() tea.Cmd {
	ctx := m.ctx
	ctrl := m.ctrl
	return func() tea.Msg {
		receipt, err := ctrl.Download(ctx)
		return messages.DownloadDoneMsg{Receipt: receipt, Err: err}
	}
}

// Snapshot returns the last session snapshot received.
func (m *Model) Snapshot() session.Snapshot {
	return m.snapshot
}

func (m *Model) Notification() (notify.Notification, bool) {
	return m.presenter.Current()
}

func (m *Model) Notice() string {
	return m.notice
}

func (m *Model) ShowHelp() bool {
	return m.showHelp
}

func (m *Model) Spinner() string {
	return m.statusBar.Frame()
}

func (m *Model) HelpView() string {
	return m.help.View(m.keys)
}
