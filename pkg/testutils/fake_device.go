package testutils

import (
	"context"
	"fmt"
	"sync"

	"qrpdf/internal/device"
)

// FakeDevice is a scripted device.Device. Tests drive the decode loop by
// calling Emit and EmitFrameError, which invoke the registered callbacks on
// the caller's goroutine.
type FakeDevice struct {
	mu sync.Mutex

	cameras      []device.CameraDescriptor
	enumerateErr error
	beginErrs    map[string]error
	endErr       error
	beginGate    chan struct{}

	active       string
	onDecoded    func(string)
	onFrameError func(error)
	fatal        func(error)

	begins    []string
	ends      int
	lastCfg   device.DecodeConfig
	enumerate int
}

// NewFakeDevice creates a device exposing the given cameras.
func NewFakeDevice(cameras ...device.CameraDescriptor) *FakeDevice {
	return &FakeDevice{
		cameras:   cameras,
		beginErrs: make(map[string]error),
	}
}

// Cameras builds n descriptors named cam0..cam{n-1}.
func Cameras(n int) []device.CameraDescriptor {
	out := make([]device.CameraDescriptor, n)
	for i := range out {
		out[i] = device.CameraDescriptor{
			ID:    fmt.Sprintf("cam%d", i),
			Label: fmt.Sprintf("Camera %d", i),
		}
	}
	return out
}

func (f *FakeDevice) SetCameras(cameras ...device.CameraDescriptor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cameras = cameras
}

func (f *FakeDevice) SetEnumerateError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enumerateErr = err
}

// SetBeginError makes BeginDecode fail for cameraID.
func (f *FakeDevice) SetBeginError(cameraID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.beginErrs, cameraID)
		return
	}
	f.beginErrs[cameraID] = err
}

func (f *FakeDevice) SetEndError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.endErr = err
}

// HoldBegin makes the next BeginDecode calls block until the returned
// function is called.
func (f *FakeDevice) HoldBegin() (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.beginGate = gate
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			if f.beginGate == gate {
				f.beginGate = nil
			}
			f.mu.Unlock()
			close(gate)
		})
	}
}

func (f *FakeDevice) EnumerateCameras(ctx context.Context) ([]device.CameraDescriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enumerate++
	if f.enumerateErr != nil {
		return nil, f.enumerateErr
	}
	out := make([]device.CameraDescriptor, len(f.cameras))
	copy(out, f.cameras)
	return out, nil
}

func (f *FakeDevice) BeginDecode(ctx context.Context, cameraID string, cfg device.DecodeConfig, onDecoded func(string), onFrameError func(error)) error {
	f.mu.Lock()
	gate := f.beginGate
	f.begins = append(f.begins, cameraID)
	f.lastCfg = cfg
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.beginErrs[cameraID]; err != nil {
		return err
	}
	if f.active != "" {
		return fmt.Errorf("fake device already streaming %s", f.active)
	}
	f.active = cameraID
	f.onDecoded = onDecoded
	f.onFrameError = onFrameError
	return nil
}

func (f *FakeDevice) EndDecode(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ends++
	f.active = ""
	f.onDecoded = nil
	f.onFrameError = nil
	return f.endErr
}

func (f *FakeDevice) OnFatal(fn func(error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fatal = fn
}

// Emit delivers a decoded payload. It reports false when nothing is
// streaming.
func (f *FakeDevice) Emit(text string) bool {
	f.mu.Lock()
	cb := f.onDecoded
	f.mu.Unlock()
	if cb == nil {
		return false
	}
	cb(text)
	return true
}

// Callback returns the current decode callback. Holding on to it and
// calling it after the stream ended simulates a late frame.
func (f *FakeDevice) Callback() func(string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.onDecoded
}

func (f *FakeDevice) EmitFrameError(err error) bool {
	f.mu.Lock()
	cb := f.onFrameError
	f.mu.Unlock()
	if cb == nil {
		return false
	}
	cb(err)
	return true
}

// Fail simulates the stream dying underneath the session.
func (f *FakeDevice) Fail(err error) {
	f.mu.Lock()
	f.active = ""
	f.onDecoded = nil
	f.onFrameError = nil
	fatal := f.fatal
	f.mu.Unlock()
	if fatal != nil {
		fatal(err)
	}
}

func (f *FakeDevice) Active() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *FakeDevice) BeginCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.begins))
	copy(out, f.begins)
	return out
}

func (f *FakeDevice) EndCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ends
}

func (f *FakeDevice) EnumerateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enumerate
}

func (f *FakeDevice) LastConfig() device.DecodeConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastCfg
}
