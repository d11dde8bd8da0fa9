//go:build !nogui

package gui

import (
	"context"
	"fmt"

	"qrpdf/internal/log"
	"qrpdf/internal/notify"
	"qrpdf/internal/scan"
	"qrpdf/internal/session"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// AppID identifies the application for fyne's preference storage.
const AppID = "io.github.qrpdf"

const placeholder = "Scan a QR code to see file information"

// App is the desktop scanner window.
type App struct {
	ctx       context.Context
	fyneApp   fyne.App
	window    fyne.Window
	ctrl      *session.Controller
	presenter *notify.Presenter

	status      *widget.Label
	camera      *widget.Label
	toast       *widget.Label
	placeholder *widget.Label
	fileName    *widget.Label
	fileType    *widget.Label
	fileStatus  *widget.Label
	details     *fyne.Container

	startButton    *widget.Button
	stopButton     *widget.Button
	switchButton   *widget.Button
	downloadButton *widget.Button
	resetButton    *widget.Button
}

// Run opens the scanner window and blocks until it is closed.
func Run(ctx context.Context, ctrl *session.Controller, presenter *notify.Presenter) error {
	a := NewApp(ctx, app.NewWithID(AppID), ctrl, presenter)
	a.Run()
	return nil
}

// IsGUIAvailable returns whether the GUI is available in this build
func IsGUIAvailable() bool {
	return true
}

// NewApp builds the scanner window on fyneApp and subscribes it to the
// controller and the presenter.
func NewApp(ctx context.Context, fyneApp fyne.App, ctrl *session.Controller, presenter *notify.Presenter) *App {
	a := &App{
		ctx:       ctx,
		fyneApp:   fyneApp,
		ctrl:      ctrl,
		presenter: presenter,
	}
	a.window = fyneApp.NewWindow("QR Code PDF Downloader")
	a.setupMainWindow()

	ctrl.OnEvent(a.apply)
	presenter.OnChange(a.renderToast)

	// Leaving the foreground plays the part of a hidden page: the camera
	// is released.
	fyneApp.Lifecycle().SetOnExitedForeground(a.hide)

	a.render(ctrl.Snapshot())
	return a
}

// Run shows the window and runs the fyne event loop. The scanner is
// stopped when the loop ends.
func (a *App) Run() {
	a.window.ShowAndRun()
	if err := a.ctrl.Stop(context.Background()); err != nil {
		log.Warnf("Stopping scanner on exit: %v", err)
	}
}

// GetMainWindow returns the main window for testing purposes
func (a *App) GetMainWindow() fyne.Window {
	return a.window
}

func (a *App) setupMainWindow() {
	a.status = widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	a.camera = widget.NewLabel("")
	a.toast = widget.NewLabel("")
	a.toast.Importance = widget.SuccessImportance
	a.toast.Hide()

	a.placeholder = widget.NewLabel(placeholder)
	a.fileName = widget.NewLabel("")
	a.fileType = widget.NewLabel(scan.FileType)
	a.fileStatus = widget.NewLabel("")
	a.details = container.New(layout.NewFormLayout(),
		widget.NewLabelWithStyle("Name", fyne.TextAlignTrailing, fyne.TextStyle{Bold: true}), a.fileName,
		widget.NewLabelWithStyle("Type", fyne.TextAlignTrailing, fyne.TextStyle{Bold: true}), a.fileType,
		widget.NewLabelWithStyle("Status", fyne.TextAlignTrailing, fyne.TextStyle{Bold: true}), a.fileStatus,
	)
	a.details.Hide()
	card := widget.NewCard("File", "", container.NewVBox(a.placeholder, a.details))

	a.startButton = widget.NewButtonWithIcon("Start Scanner", theme.MediaPlayIcon(), func() {
		a.do("start", a.ctrl.Start)
	})
	a.startButton.Importance = widget.HighImportance
	a.stopButton = widget.NewButtonWithIcon("Stop Scanner", theme.MediaStopIcon(), func() {
		a.do("stop", a.ctrl.Stop)
	})
	a.switchButton = widget.NewButtonWithIcon("Switch Camera", theme.ViewRefreshIcon(), func() {
		a.do("switch", a.ctrl.SwitchCamera)
	})
	a.downloadButton = widget.NewButtonWithIcon("Download", theme.DownloadIcon(), func() {
		a.do("download", func(ctx context.Context) error {
			_, err := a.ctrl.Download(ctx)
			return err
		})
	})
	a.resetButton = widget.NewButtonWithIcon("Reset", theme.ContentClearIcon(), func() {
		a.do("reset", func(context.Context) error { return a.ctrl.Reset() })
	})

	controls := container.NewGridWithColumns(5,
		a.startButton, a.stopButton, a.switchButton, a.downloadButton, a.resetButton)

	content := container.NewBorder(
		container.NewVBox(a.toast, container.NewHBox(a.status, layout.NewSpacer(), a.camera)),
		controls,
		nil,
		nil,
		card,
	)

	a.window.SetContent(content)
	a.window.Resize(fyne.NewSize(640, 360))

	a.window.SetCloseIntercept(func() {
		a.hide()
		a.fyneApp.Quit()
	})

	a.window.Canvas().SetOnTypedKey(func(ke *fyne.KeyEvent) {
		switch ke.Name {
		case fyne.KeyQ:
			a.fyneApp.Quit()
		case fyne.KeyEscape:
			a.presenter.Dismiss()
		}
	})
}

// do runs a controller operation off the UI goroutine. Failures reach the
// user through the controller's events; the returned error is only logged.
func (a *App) do(op string, fn func(context.Context) error) {
	go func() {
		if err := fn(a.ctx); err != nil {
			log.LogWithFields(log.F("op", op), log.F("error", err)).Debug("Operation finished with error")
		}
	}()
}

func (a *App) hide() {
	a.ctrl.Hide(a.ctx)
}

func (a *App) apply(ev session.Event) {
	a.render(ev.Snapshot)
	switch {
	case ev.Blocking():
		dialog.ShowInformation("Scanner", ev.Message, a.window)
	case ev.Toast():
		a.presenter.Show(ev.Message)
	}
}

// render brings every widget in line with snap.
func (a *App) render(snap session.Snapshot) {
	switch snap.Status {
	case session.Running:
		a.status.SetText("Scanning")
	case session.Stopped:
		a.status.SetText("Scanner stopped")
	default:
		a.status.SetText("Scanner idle")
	}
	if c, ok := snap.ActiveCamera(); ok && snap.Status == session.Running {
		a.camera.SetText(fmt.Sprintf("%s (%d/%d)", c.Label, snap.ActiveCameraIndex+1, len(snap.Cameras)))
	} else {
		a.camera.SetText("")
	}

	if snap.Result != nil {
		a.fileName.SetText(snap.Result.DisplayFilename)
		a.fileStatus.SetText(snap.FileStatus)
		a.placeholder.Hide()
		a.details.Show()
	} else {
		text := placeholder
		if snap.FileStatus != "" {
			text += "\n" + snap.FileStatus
		}
		a.placeholder.SetText(text)
		a.details.Hide()
		a.placeholder.Show()
	}

	t := session.TriggersFor(snap)
	setEnabled(a.startButton, t.Start)
	setEnabled(a.stopButton, t.Stop)
	setEnabled(a.switchButton, t.Switch)
	setEnabled(a.downloadButton, t.Download)
	setEnabled(a.resetButton, t.Reset)
}

func (a *App) renderToast() {
	n, ok := a.presenter.Current()
	if !ok {
		a.toast.Hide()
		return
	}
	if n.Phase == notify.Leaving {
		a.toast.Importance = widget.LowImportance
	} else {
		a.toast.Importance = widget.SuccessImportance
	}
	a.toast.SetText(n.Message)
	a.toast.Show()
}

func setEnabled(b *widget.Button, enabled bool) {
	if enabled {
		b.Enable()
	} else {
		b.Disable()
	}
}
