package common

import (
	"qrpdf/internal/notify"
	"qrpdf/internal/session"
)

// ModelReader defines the interface that views use to read model state
type ModelReader interface {
	Snapshot() session.Snapshot
	Notification() (notify.Notification, bool)
	// Notice is the blocking notice awaiting dismissal, if any.
	Notice() string
	ShowHelp() bool
	// Spinner is the spinner frame shown while an operation is pending.
	Spinner() string
	HelpView() string
}
