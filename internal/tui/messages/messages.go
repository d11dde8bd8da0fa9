package messages

import (
	"qrpdf/internal/download"
	"qrpdf/internal/session"
)

// EventMsg forwards a session event into the program.
type EventMsg struct {
	Event session.Event
}

// NotifyMsg reports that the notification changed.
type NotifyMsg struct{}

// OperationDoneMsg reports a finished session command.
type OperationDoneMsg struct {
	Op  string
	Err error
}

// DownloadDoneMsg reports a finished download.
type DownloadDoneMsg struct {
	Receipt *download.Receipt
	Err     error
}
