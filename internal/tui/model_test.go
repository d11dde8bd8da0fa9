package tui

import (
	"context"
	"sync"
	"testing"
	"time"

	"qrpdf/internal/errors"
	"qrpdf/internal/notify"
	"qrpdf/internal/scan"
	"qrpdf/internal/session"
	"qrpdf/internal/tui/messages"
	"qrpdf/pkg/testutils"

	alsrt "github.com/alecthomas/assert"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// harness drives a Model the way the program does, but synchronously:
// commands run inline and the controller's events are fed back as
// messages afterwards.
type harness struct {
	t   *testing.T
	m   *Model
	dev *testutils.FakeDevice

	mu     sync.Mutex
	events []session.Event
}

func newHarness(t *testing.T, cameras int) *harness {
	t.Helper()
	dev := testutils.NewFakeDevice(testutils.Cameras(cameras)...)
	ctrl := session.NewController(dev)
	presenter := notify.NewPresenter(notify.WithDurations(time.Hour, time.Hour))
	h := &harness{t: t, dev: dev, m: New(context.Background(), ctrl, presenter)}
	ctrl.OnEvent(func(ev session.Event) {
		h.mu.Lock()
		h.events = append(h.events, ev)
		h.mu.Unlock()
	})
	return h
}

func (h *harness) send(msg tea.Msg) tea.Msg {
	h.t.Helper()
	_, cmd := h.m.Update(msg)
	var out tea.Msg
	if cmd != nil {
		out = cmd()
	}
	h.flush()
	return out
}

func (h *harness) press(k string) tea.Msg {
	if k == " " {
		return h.send(tea.KeyMsg{Type: tea.KeySpace})
	}
	return h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
}

func (h *harness) flush() {
	h.mu.Lock()
	events := h.events
	h.events = nil
	h.mu.Unlock()
	for _, ev := range events {
		h.m.Update(messages.EventMsg{Event: ev})
	}
}

func TestModelInitialization(t *testing.T) {
	h := newHarness(t, 1)
	assert.Equal(t, session.Idle, h.m.Snapshot().Status)
	assert.Empty(t, h.m.Notice())
	assert.False(t, h.m.ShowHelp())
	_, ok := h.m.Notification()
	assert.False(t, ok)
	assert.Nil(t, h.m.Init())
}

func TestModelStartAndAccept(t *testing.T) {
	h := newHarness(t, 2)

	msg := h.press("s")
	require.IsType(t, messages.OperationDoneMsg{}, msg)
	assert.NoError(t, msg.(messages.OperationDoneMsg).Err)
	assert.Equal(t, session.Running, h.m.Snapshot().Status)
	assert.Equal(t, "cam0", h.dev.Active())

	require.True(t, h.dev.Emit("https://example.com/files/report.pdf"))
	h.flush()

	snap := h.m.Snapshot()
	assert.Equal(t, session.Stopped, snap.Status)
	require.NotNil(t, snap.Result)
	assert.Equal(t, "report.pdf", snap.Result.DisplayFilename)

	n, ok := h.m.Notification()
	require.True(t, ok)
	assert.Equal(t, session.NoticeScanned, n.Message)

	out := testutils.StripANSI(h.m.View())
	alsrt.Contains(t, out, "report.pdf")
	alsrt.Contains(t, out, scan.StatusReady)
	alsrt.Contains(t, out, "Scanner: Stopped")
}

func TestModelTriggerGating(t *testing.T) {
	t.Run("disabled keys do nothing", func(t *testing.T) {
		h := newHarness(t, 2)
		assert.Nil(t, h.press("x"))
		assert.Nil(t, h.press("c"))
		assert.Nil(t, h.press("d"))
		assert.Equal(t, 0, h.dev.EnumerateCalls())
		assert.Empty(t, h.dev.BeginCalls())
	})

	t.Run("start is disabled while running", func(t *testing.T) {
		h := newHarness(t, 1)
		h.press("s")
		assert.Nil(t, h.press("s"))
		assert.Nil(t, h.press("r"))
		assert.Len(t, h.dev.BeginCalls(), 1)
	})

	t.Run("switch and stop", func(t *testing.T) {
		h := newHarness(t, 2)
		h.press("s")
		h.press("c")
		assert.Equal(t, "cam1", h.dev.Active())
		assert.Equal(t, 1, h.m.Snapshot().ActiveCameraIndex)

		h.press("x")
		assert.Equal(t, session.Stopped, h.m.Snapshot().Status)
		assert.Empty(t, h.dev.Active())
	})

	t.Run("reset after a scan", func(t *testing.T) {
		h := newHarness(t, 1)
		h.press("s")
		h.dev.Emit("https://example.com/a.pdf")
		h.flush()

		h.press("r")
		assert.Equal(t, session.Idle, h.m.Snapshot().Status)
		assert.Nil(t, h.m.Snapshot().Result)
		n, ok := h.m.Notification()
		require.True(t, ok)
		assert.Equal(t, session.NoticeReset, n.Message)
	})
}

func TestModelBlockingNotice(t *testing.T) {
	h := newHarness(t, 0)

	msg := h.press("s")
	require.IsType(t, messages.OperationDoneMsg{}, msg)
	assert.True(t, errors.IsKind(msg.(messages.OperationDoneMsg).Err, errors.NoCameraFound))
	assert.Equal(t, "No cameras found. Please check your camera permissions.", h.m.Notice())

	out := testutils.StripANSI(h.m.View())
	alsrt.Contains(t, out, "No cameras found")
	alsrt.Contains(t, out, "press space to dismiss")

	h.press(" ")
	assert.Empty(t, h.m.Notice())
}

func TestModelRejectionShowsStatusOnly(t *testing.T) {
	h := newHarness(t, 1)
	h.press("s")

	h.dev.Emit("https://example.com/image.png")
	h.flush()

	snap := h.m.Snapshot()
	assert.Equal(t, session.Running, snap.Status)
	assert.Equal(t, scan.StatusNotPDF, snap.FileStatus)
	_, ok := h.m.Notification()
	assert.False(t, ok)
	assert.Empty(t, h.m.Notice())
	alsrt.Contains(t, testutils.StripANSI(h.m.View()), scan.StatusNotPDF)
}

func TestModelBlurHidesSession(t *testing.T) {
	h := newHarness(t, 1)
	h.press("s")
	require.Equal(t, session.Running, h.m.Snapshot().Status)

	h.send(tea.BlurMsg{})
	assert.Equal(t, session.Stopped, h.m.Snapshot().Status)
	assert.Empty(t, h.dev.Active())
}

func TestModelHelpAndQuit(t *testing.T) {
	h := newHarness(t, 1)

	h.press("?")
	assert.True(t, h.m.ShowHelp())
	alsrt.Contains(t, testutils.StripANSI(h.m.View()), "How it works")

	h.press("?")
	assert.False(t, h.m.ShowHelp())

	assert.Equal(t, tea.Quit(), h.press("q"))
}

func TestModelDownloadWithoutDownloader(t *testing.T) {
	h := newHarness(t, 1)
	h.press("s")
	h.dev.Emit("https://example.com/a.pdf")
	h.flush()

	msg := h.press("d")
	require.IsType(t, messages.DownloadDoneMsg{}, msg)
	done := msg.(messages.DownloadDoneMsg)
	assert.Error(t, done.Err)
	assert.Nil(t, done.Receipt)
	assert.Equal(t, scan.StatusReady, h.m.Snapshot().FileStatus)
}

func TestModelPendingStartsSpinner(t *testing.T) {
	h := newHarness(t, 1)
	release := h.dev.HoldBegin()

	_, cmd := h.m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	require.NotNil(t, cmd)
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	require.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return len(h.events) > 0
	}, time.Second, 5*time.Millisecond)

	h.mu.Lock()
	first := h.events[0]
	h.events = h.events[1:]
	h.mu.Unlock()
	_, tick := h.m.Update(messages.EventMsg{Event: first})
	assert.True(t, h.m.Snapshot().Pending)
	assert.NotNil(t, tick)
	alsrt.Contains(t, testutils.StripANSI(h.m.View()), "Scanner: Idle")

	release()
	<-done
	h.flush()
	assert.False(t, h.m.Snapshot().Pending)
	assert.Equal(t, session.Running, h.m.Snapshot().Status)
}
