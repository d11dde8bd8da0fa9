// Package session implements the scanner session state machine.
//
// A Controller owns one Session and drives a device.Device through it:
//
//	Idle ──Start──▶ Running ──Stop/Hide/accept──▶ Stopped ──Reset──▶ Idle
//	                   └──SwitchCamera──▶ Running (or Stopped if restart fails)
//
// Every change is published as an Event to registered listeners so the
// terminal UI, desktop GUI and HTTP API render the same state.
package session

import (
	"qrpdf/internal/device"
	"qrpdf/internal/scan"
)

// Status is the lifecycle state of a session.
type Status int

const (
	Idle Status = iota
	Running
	Stopped
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// MarshalText renders the status by name in JSON.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Session is the camera side of the state: lifecycle status and the camera
// list cached by the last Start.
type Session struct {
	Status            Status                    `json:"status"`
	ActiveCameraIndex int                       `json:"active_camera_index"`
	Cameras           []device.CameraDescriptor `json:"cameras"`
}

// ActiveCamera returns the camera the session decodes from, if any camera
// has been enumerated.
func (s Session) ActiveCamera() (device.CameraDescriptor, bool) {
	if s.ActiveCameraIndex < 0 || s.ActiveCameraIndex >= len(s.Cameras) {
		return device.CameraDescriptor{}, false
	}
	return s.Cameras[s.ActiveCameraIndex], true
}

// Snapshot is a copy of everything the surfaces render.
type Snapshot struct {
	Session
	// Result is the current file record, nil until a payload is accepted
	// and again after Reset.
	Result *scan.Result `json:"result,omitempty"`
	// FileStatus is the status line of the file card.
	FileStatus  string `json:"file_status,omitempty"`
	Pending     bool   `json:"pending"`
	Downloading bool   `json:"downloading"`
}

// Triggers holds the enablement of the five user triggers.
type Triggers struct {
	Start    bool `json:"start"`
	Stop     bool `json:"stop"`
	Switch   bool `json:"switch"`
	Download bool `json:"download"`
	Reset    bool `json:"reset"`
}

// TriggersFor derives trigger enablement from a snapshot.
func TriggersFor(s Snapshot) Triggers {
	running := s.Status == Running
	return Triggers{
		Start:    !running && !s.Pending,
		Stop:     running && !s.Pending,
		Switch:   running && !s.Pending,
		Download: s.Result != nil && !s.Downloading,
		Reset:    !running && !s.Pending,
	}
}
