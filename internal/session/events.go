package session

import (
	"qrpdf/internal/download"
	"qrpdf/internal/errors"
)

// Notification texts published with events.
const (
	NoticeScanned      = "QR Code scanned successfully! File ready to download."
	NoticeDownloaded   = "File downloaded successfully!"
	NoticeReset        = "Ready to scan a new QR code"
	NoticeScannerError = "Scanner error occurred. Please try again."
)

// EventKind classifies events.
type EventKind int

const (
	// EventStateChanged reports a status or pending change.
	EventStateChanged EventKind = iota
	// EventAccepted reports a new current file record.
	EventAccepted
	// EventRejected reports a payload that failed a gate; the session keeps
	// running.
	EventRejected
	EventCameraSwitched
	EventDownloadStarted
	EventDownloaded
	// EventNotice carries an informational message.
	EventNotice
	// EventError carries a failed operation.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventStateChanged:
		return "state"
	case EventAccepted:
		return "accepted"
	case EventRejected:
		return "rejected"
	case EventCameraSwitched:
		return "camera_switched"
	case EventDownloadStarted:
		return "download_started"
	case EventDownloaded:
		return "downloaded"
	case EventNotice:
		return "notice"
	case EventError:
		return "error"
	}
	return "unknown"
}

// Event is published after every change of the session.
type Event struct {
	Kind     EventKind
	Snapshot Snapshot
	// Message is the user-facing text, if any.
	Message string
	Err     error
	Receipt *download.Receipt
}

// Blocking reports whether the event should be shown as a blocking notice
// rather than a transient notification.
func (e Event) Blocking() bool {
	return e.Kind == EventError && e.Err != nil && errors.KindOf(e.Err).Blocking()
}

// Toast reports whether the event's message should be shown as a transient
// notification. Rejections and camera switches are reported through the
// status line and the log only.
func (e Event) Toast() bool {
	if e.Message == "" || e.Blocking() {
		return false
	}
	return e.Kind != EventRejected && e.Kind != EventCameraSwitched
}

// Listener receives events. Listeners are called outside the controller's
// lock and may call back into it.
type Listener func(Event)
