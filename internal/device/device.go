// Package device defines the camera capability the scanner session drives
// and a directory-backed implementation of it.
//
// A camera is anything that can be enumerated and then asked to decode
// continuously, reporting each decoded payload and each per-frame miss
// through callbacks. Callbacks for one decode run are delivered strictly
// sequentially.
package device

import (
	"context"
	"fmt"
)

// Fixed decode parameters.
const (
	TargetFPS    = 10
	RegionWidth  = 250
	RegionHeight = 250
	AspectRatio  = 1.0
)

// CameraDescriptor identifies one enumerated video source.
type CameraDescriptor struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

func (c CameraDescriptor) String() string {
	if c.Label == "" || c.Label == c.ID {
		return c.ID
	}
	return fmt.Sprintf("%s (%s)", c.Label, c.ID)
}

// Region is the central detection area, in logical units.
type Region struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DecodeConfig controls a decode run.
type DecodeConfig struct {
	TargetFPS       int     `json:"target_fps"`
	DetectionRegion Region  `json:"detection_region"`
	AspectRatio     float64 `json:"aspect_ratio"`
}

// DefaultDecodeConfig returns the fixed configuration used by every session.
func DefaultDecodeConfig() DecodeConfig {
	return DecodeConfig{
		TargetFPS:       TargetFPS,
		DetectionRegion: Region{Width: RegionWidth, Height: RegionHeight},
		AspectRatio:     AspectRatio,
	}
}

// Device is the camera capability.
type Device interface {
	// EnumerateCameras lists the available video sources.
	EnumerateCameras(ctx context.Context) ([]CameraDescriptor, error)
	// BeginDecode starts continuous decoding on cameraID. It returns once
	// the camera is streaming; onDecoded and onFrameError are then called
	// sequentially from the device's own goroutine until EndDecode.
	BeginDecode(ctx context.Context, cameraID string, cfg DecodeConfig, onDecoded func(text string), onFrameError func(err error)) error
	// EndDecode releases the active camera. It must be safe to call from
	// inside a decode callback and when nothing is running.
	EndDecode(ctx context.Context) error
}

// FatalNotifier is implemented by devices that can lose their stream
// without being asked to stop.
type FatalNotifier interface {
	OnFatal(func(err error))
}
