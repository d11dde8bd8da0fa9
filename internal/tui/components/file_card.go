package components

import (
	"strings"

	"qrpdf/internal/scan"
	"qrpdf/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

// Placeholder is shown instead of the card until a file is scanned.
const Placeholder = "Scan a QR code to see file information"

// RenderFileCard renders the current file record. A nil result renders the
// placeholder, still showing a rejection status if there is one.
func RenderFileCard(result *scan.Result, status string) string {
	t := styles.Theme
	if result == nil {
		body := t.Help.Render(Placeholder)
		if status != "" {
			body += "\n" + statusStyle(status).Render(status)
		}
		return t.Card.Render(body)
	}

	var sb strings.Builder
	sb.WriteString(t.Label.Render("Name") + t.Value.Render(result.DisplayFilename) + "\n")
	sb.WriteString(t.Label.Render("Type") + t.Value.Render(scan.FileType) + "\n")
	if status == "" {
		status = scan.StatusReady
	}
	sb.WriteString(t.Label.Render("Status") + statusStyle(status).Render(status))
	return t.Card.Render(sb.String())
}

// statusStyle colors a status line; anything unknown is a rejection.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case scan.StatusReady, scan.StatusDownloaded:
		return styles.Theme.Success
	case scan.StatusDownloading:
		return styles.Theme.Info
	}
	return styles.Theme.Error
}
