package components

import (
	"strings"

	"qrpdf/internal/notify"
	"qrpdf/internal/session"
	"qrpdf/internal/tui/styles"
)

// RenderTriggers renders the five trigger buttons, dimming disabled ones.
func RenderTriggers(t session.Triggers) string {
	buttons := []struct {
		key, label string
		enabled    bool
	}{
		{"s", "Start Scanner", t.Start},
		{"x", "Stop Scanner", t.Stop},
		{"c", "Switch Camera", t.Switch},
		{"d", "Download", t.Download},
		{"r", "Reset", t.Reset},
	}

	parts := make([]string, len(buttons))
	for i, b := range buttons {
		text := "[" + b.key + "] " + b.label
		if b.enabled {
			parts[i] = styles.Theme.Enabled.Render(text)
		} else {
			parts[i] = styles.Theme.Disabled.Render(text)
		}
	}
	return strings.Join(parts, " ")
}

// RenderToast renders the current notification.
func RenderToast(n notify.Notification) string {
	if n.Phase == notify.Leaving {
		return styles.Theme.Leaving.Render(n.Message)
	}
	return styles.Theme.Toast.Render(n.Message)
}

// RenderNotice renders a blocking notice.
func RenderNotice(msg string) string {
	return styles.Theme.Banner.Render(msg + "\n" + styles.Theme.Help.Render("press space to dismiss"))
}
