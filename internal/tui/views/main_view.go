package views

import (
	"fmt"
	"strings"

	"qrpdf/internal/session"
	"qrpdf/internal/tui/common"
	"qrpdf/internal/tui/components"
	"qrpdf/internal/tui/styles"
)

// Title is the heading of the scanner screen.
const Title = "QR Code PDF Downloader"

func RenderMainView(m common.ModelReader) string {
	snap := m.Snapshot()
	var sb strings.Builder

	sb.WriteString(styles.Theme.Title.Render(Title) + "\n")

	if n, ok := m.Notification(); ok {
		sb.WriteString(components.RenderToast(n) + "\n\n")
	}
	if notice := m.Notice(); notice != "" {
		sb.WriteString(components.RenderNotice(notice) + "\n\n")
	}

	sb.WriteString(RenderScannerLine(snap, m.Spinner()) + "\n\n")
	sb.WriteString(components.RenderFileCard(snap.Result, snap.FileStatus) + "\n\n")
	sb.WriteString(components.RenderTriggers(session.TriggersFor(snap)) + "\n")

	if m.ShowHelp() {
		sb.WriteString("\n" + RenderHelp())
	}
	sb.WriteString("\n" + m.HelpView())

	return styles.Theme.App.Render(sb.String())
}

// RenderScannerLine describes the camera side of the session.
func RenderScannerLine(snap session.Snapshot, spinner string) string {
	var state string
	switch snap.Status {
	case session.Running:
		state = styles.Theme.Success.Render("Scanning")
	case session.Stopped:
		state = styles.Theme.Highlight.Render("Stopped")
	default:
		state = styles.Theme.Help.Render("Idle")
	}

	line := "Scanner: " + state
	if camera, ok := snap.ActiveCamera(); ok && snap.Status == session.Running {
		line += fmt.Sprintf("  Camera: %s (%d/%d)", camera.Label, snap.ActiveCameraIndex+1, len(snap.Cameras))
	}
	if snap.Pending && spinner != "" {
		line += " " + spinner
	}
	if snap.Downloading {
		line += "  " + styles.Theme.Info.Render("downloading")
	}
	return line
}

func RenderHelp() string {
	return styles.Theme.Help.Render(`How it works:
  1. Start the scanner and point a camera at a QR code.
  2. The scanner stops as soon as a link to a PDF is read.
  3. Download saves the file; Reset clears it for the next scan.
`)
}
