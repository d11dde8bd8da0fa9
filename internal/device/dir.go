package device

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"qrpdf/internal/errors"
	"qrpdf/internal/log"

	"github.com/gobwas/glob"
)

const (
	lockFileName  = ".lock"
	labelFileName = "label"
)

// DirDevice exposes every subdirectory of a root directory as a camera.
// Frames are image (or .txt payload) files written into the camera
// directory; the decode loop samples the newest frame at the target rate.
// A ".lock" file inside a camera directory marks it as in use.
type DirDevice struct {
	root    string
	pattern glob.Glob
	decoder FrameDecoder

	mu    sync.Mutex
	run   *decodeRun
	fatal func(error)
}

type decodeRun struct {
	camera   string
	lockPath string
	watcher  *frameWatcher
	stop     chan struct{}
	once     sync.Once
}

// NewDirDevice creates a directory-backed device. A nil decoder selects
// the QR decoder.
func NewDirDevice(root, framePattern string, decoder FrameDecoder) (*DirDevice, error) {
	pattern, err := glob.Compile(framePattern)
	if err != nil {
		return nil, errors.NewConfigError("invalid frame pattern", "camera.frame_pattern", errors.InvalidConfig, err)
	}
	if decoder == nil {
		decoder = NewQRDecoder()
	}
	return &DirDevice{
		root:    root,
		pattern: pattern,
		decoder: decoder,
	}, nil
}

// OnFatal registers the callback invoked when an active stream is lost.
func (d *DirDevice) OnFatal(fn func(err error)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fatal = fn
}

// EnumerateCameras lists camera directories in name order. A missing root
// means no cameras.
func (d *DirDevice) EnumerateCameras(ctx context.Context) ([]CameraDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewDeviceError("camera enumeration cancelled", "", errors.DeviceEnumerationError, err)
	}

	entries, err := os.ReadDir(d.root)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			return []CameraDescriptor{}, nil
		case os.IsPermission(err):
			return nil, errors.NewDeviceError("cannot list cameras", d.root, errors.PermissionDenied, err)
		}
		return nil, errors.NewDeviceError("cannot list cameras", d.root, errors.DeviceEnumerationError, err)
	}

	cameras := make([]CameraDescriptor, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		cameras = append(cameras, CameraDescriptor{
			ID:    entry.Name(),
			Label: readLabel(filepath.Join(d.root, entry.Name())),
		})
	}
	return cameras, nil
}

func readLabel(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, labelFileName))
	if err != nil {
		return filepath.Base(dir)
	}
	if label := strings.TrimSpace(string(data)); label != "" {
		return label
	}
	return filepath.Base(dir)
}

// BeginDecode acquires the camera and starts the decode loop.
func (d *DirDevice) BeginDecode(ctx context.Context, cameraID string, cfg DecodeConfig, onDecoded func(string), onFrameError func(error)) error {
	if cfg.TargetFPS <= 0 {
		return errors.NewDeviceError("invalid decode rate", cameraID, errors.DeviceStartError, nil)
	}
	if err := ctx.Err(); err != nil {
		return errors.NewDeviceError("camera start cancelled", cameraID, errors.DeviceStartError, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.run != nil {
		return errors.NewDeviceError("a camera is already streaming", d.run.camera, errors.DeviceBusy, nil)
	}

	dir := filepath.Join(d.root, cameraID)
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		return errors.NewDeviceError("camera not found", cameraID, errors.DeviceNotFound, err)
	case os.IsPermission(err):
		return errors.NewDeviceError("camera access denied", cameraID, errors.PermissionDenied, err)
	case err != nil:
		return errors.NewDeviceError("cannot open camera", cameraID, errors.DeviceStartError, err)
	case !info.IsDir():
		return errors.NewDeviceError("camera not found", cameraID, errors.DeviceNotFound, nil)
	}

	lockPath := filepath.Join(dir, lockFileName)
	lock, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	switch {
	case os.IsExist(err):
		return errors.NewDeviceError("camera is in use", cameraID, errors.DeviceBusy, err)
	case os.IsPermission(err):
		return errors.NewDeviceError("camera access denied", cameraID, errors.PermissionDenied, err)
	case err != nil:
		return errors.NewDeviceError("cannot lock camera", cameraID, errors.DeviceStartError, err)
	}
	lock.Close()

	watcher, err := newFrameWatcher(dir, d.pattern)
	if err != nil {
		os.Remove(lockPath)
		return errors.NewDeviceError("cannot start camera stream", cameraID, errors.DeviceStartError, err)
	}

	run := &decodeRun{
		camera:   cameraID,
		lockPath: lockPath,
		watcher:  watcher,
		stop:     make(chan struct{}),
	}
	d.run = run
	watcher.start()
	go d.decodeLoop(run, cfg, onDecoded, onFrameError)

	log.LogWithFields(log.F("camera", cameraID), log.F("fps", cfg.TargetFPS)).Info("Camera streaming")
	return nil
}

func (d *DirDevice) decodeLoop(run *decodeRun, cfg DecodeConfig, onDecoded func(string), onFrameError func(error)) {
	ticker := time.NewTicker(time.Second / time.Duration(cfg.TargetFPS))
	defer ticker.Stop()

	var latest string
	for {
		select {
		case <-run.stop:
			return
		case frame := <-run.watcher.Frames():
			latest = frame.Path
		case err := <-run.watcher.Errors():
			d.lose(run, err)
			return
		case <-ticker.C:
			if latest == "" {
				continue
			}
			path := latest
			latest = ""

			text, err := d.decoder.DecodeFrame(path, cfg)
			select {
			case <-run.stop:
				return
			default:
			}
			if err != nil {
				if onFrameError != nil {
					onFrameError(err)
				}
				continue
			}
			if onDecoded != nil {
				onDecoded(text)
			}
		}
	}
}

// lose tears down a run whose stream failed and reports it.
func (d *DirDevice) lose(run *decodeRun, err error) {
	d.mu.Lock()
	if d.run == run {
		d.run = nil
	}
	fatal := d.fatal
	d.mu.Unlock()

	run.close()
	devErr := errors.NewDeviceError("camera stream lost", run.camera, errors.DeviceStartError, err)
	log.LogWithError(devErr).Error("Scanner error")
	if fatal != nil {
		fatal(devErr)
	}
}

// EndDecode stops the decode loop and releases the camera lock. It does
// not wait for an in-flight frame; the loop drops its result.
func (d *DirDevice) EndDecode(ctx context.Context) error {
	d.mu.Lock()
	run := d.run
	d.run = nil
	d.mu.Unlock()

	if run == nil {
		return nil
	}
	if err := run.close(); err != nil {
		return errors.NewDeviceError("cannot release camera", run.camera, errors.Unknown, err)
	}
	log.LogWithFields(log.F("camera", run.camera)).Info("Camera released")
	return nil
}

// Active returns the camera currently streaming, if any.
func (d *DirDevice) Active() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.run == nil {
		return "", false
	}
	return d.run.camera, true
}

func (r *decodeRun) close() error {
	var err error
	r.once.Do(func() {
		close(r.stop)
		r.watcher.stop()
		if rmErr := os.Remove(r.lockPath); rmErr != nil && !os.IsNotExist(rmErr) {
			err = rmErr
		}
	})
	return err
}
