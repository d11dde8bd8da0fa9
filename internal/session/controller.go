package session

import (
	"context"
	"sync"

	"qrpdf/internal/device"
	"qrpdf/internal/download"
	"qrpdf/internal/errors"
	"qrpdf/internal/log"
	"qrpdf/internal/scan"

	"github.com/google/uuid"
)

// Downloader saves the file of the current record.
type Downloader interface {
	Download(ctx context.Context, result *scan.Result) (*download.Receipt, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithDownloader sets the download capability used by Download.
func WithDownloader(d Downloader) Option {
	return func(c *Controller) {
		c.downloader = d
	}
}

// WithHandler replaces the decode result handler.
func WithHandler(h *scan.Handler) Option {
	return func(c *Controller) {
		c.handler = h
	}
}

// Controller drives a device through the session lifecycle.
//
// All state is guarded by mu; device calls are made without holding it.
// At most one device operation runs at a time: while one is in flight the
// session is Pending and Start, Stop, SwitchCamera and Reset are refused
// with OperationPending (Stop and Hide instead cancel the operation).
//
// Each Start and SwitchCamera runs under a fresh operation token. Stop,
// Hide, Reset and acceptance clear the token, so a start that completes
// afterwards releases the camera again and decoded payloads from a
// stopped run are dropped.
type Controller struct {
	dev        device.Device
	handler    *scan.Handler
	downloader Downloader
	cfg        device.DecodeConfig

	mu          sync.Mutex
	session     Session
	result      *scan.Result
	fileStatus  string
	pending     bool
	downloading bool
	token       uuid.UUID
	listeners   []Listener
}

// NewController creates an Idle controller for dev.
func NewController(dev device.Device, opts ...Option) *Controller {
	c := &Controller{
		dev:     dev,
		handler: scan.NewHandler(),
		cfg:     device.DefaultDecodeConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if notifier, ok := dev.(device.FatalNotifier); ok {
		notifier.OnFatal(c.onFatal)
	}
	return c
}

// OnEvent registers a listener for every subsequent event.
func (c *Controller) OnEvent(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Triggers returns the current trigger enablement.
func (c *Controller) Triggers() Triggers {
	return TriggersFor(c.Snapshot())
}

// CurrentResult returns the current file record, if any.
func (c *Controller) CurrentResult() (scan.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return scan.Result{}, false
	}
	return *c.result, true
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		Session:     c.session,
		FileStatus:  c.fileStatus,
		Pending:     c.pending,
		Downloading: c.downloading,
	}
	s.Cameras = append([]device.CameraDescriptor(nil), c.session.Cameras...)
	if c.result != nil {
		r := *c.result
		s.Result = &r
	}
	return s
}

func (c *Controller) emit(ev Event) {
	c.mu.Lock()
	ev.Snapshot = c.snapshotLocked()
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()

	for _, l := range listeners {
		l(ev)
	}
}

func (c *Controller) emitError(err error) error {
	c.emit(Event{Kind: EventError, Message: errors.Describe(err), Err: err})
	return err
}

// Start enumerates cameras and begins decoding on the first one.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.session.Status == Running {
		c.mu.Unlock()
		return c.emitError(errors.NewKind(errors.InvalidOperation, "scanner is already running"))
	}
	if c.pending {
		c.mu.Unlock()
		return c.emitError(errors.ErrOperationPending)
	}
	tok := uuid.New()
	c.token = tok
	c.pending = true
	c.mu.Unlock()
	c.emit(Event{Kind: EventStateChanged})

	cameras, err := c.dev.EnumerateCameras(ctx)
	if err == nil && len(cameras) == 0 {
		err = errors.ErrNoCameraFound
	}
	if err != nil {
		if errors.KindOf(err) == errors.Unknown {
			err = errors.WrapKind(err, errors.DeviceEnumerationError, "camera enumeration failed")
		}
		c.mu.Lock()
		c.pending = false
		if c.token == tok {
			c.token = uuid.Nil
		}
		c.mu.Unlock()
		log.LogWithError(err).Error("Failed to start scanner")
		return c.emitError(err)
	}

	c.mu.Lock()
	c.session.Cameras = cameras
	c.session.ActiveCameraIndex = 0
	if c.token != tok {
		c.pending = false
		c.mu.Unlock()
		log.Debug("Start cancelled before the camera was opened")
		c.emit(Event{Kind: EventStateChanged})
		return nil
	}
	c.mu.Unlock()

	camera := cameras[0]
	err = c.dev.BeginDecode(ctx, camera.ID, c.cfg, c.decodedFor(tok), c.frameError)
	return c.finishBegin(ctx, tok, camera, err, false)
}

// finishBegin settles a BeginDecode issued under tok.
func (c *Controller) finishBegin(ctx context.Context, tok uuid.UUID, camera device.CameraDescriptor, err error, switching bool) error {
	c.mu.Lock()
	c.pending = false
	stale := c.token != tok

	if err != nil {
		if errors.KindOf(err) == errors.Unknown {
			err = errors.NewDeviceError("cannot start camera", camera.ID, errors.DeviceStartError, err)
		}
		if !stale {
			c.token = uuid.Nil
		}
		if switching {
			c.session.Status = Stopped
		}
		c.mu.Unlock()
		log.LogWithError(err).Error("Failed to start scanner")
		return c.emitError(err)
	}

	if stale {
		// Stopped while the camera was opening.
		c.pending = true
		c.mu.Unlock()
		if endErr := c.dev.EndDecode(ctx); endErr != nil {
			log.LogWithError(endErr).Warn("Failed to release camera after cancelled start")
		}
		c.mu.Lock()
		c.pending = false
		c.mu.Unlock()
		log.LogWithFields(log.F("camera", camera.ID)).Debug("Start completed after stop, camera released")
		c.emit(Event{Kind: EventStateChanged})
		return nil
	}

	c.session.Status = Running
	c.mu.Unlock()

	if switching {
		log.LogWithFields(log.F("camera", camera.ID)).Infof("Switched to camera: %s", camera.Label)
		c.emit(Event{Kind: EventCameraSwitched, Message: camera.Label})
		return nil
	}
	log.LogWithFields(log.F("camera", camera.ID)).Info("Scanner started")
	c.emit(Event{Kind: EventStateChanged})
	return nil
}

// Stop ends decoding. It is a no-op unless the session is Running or a
// start is in flight. Release failures are logged only.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	c.token = uuid.Nil
	if c.session.Status != Running {
		c.mu.Unlock()
		return nil
	}
	c.session.Status = Stopped
	if c.pending {
		// A camera switch is in flight; it releases the device itself.
		c.mu.Unlock()
		c.emit(Event{Kind: EventStateChanged})
		return nil
	}
	c.pending = true
	c.mu.Unlock()
	c.emit(Event{Kind: EventStateChanged})

	c.release(ctx)
	log.Info("Scanner stopped")
	c.emit(Event{Kind: EventStateChanged})
	return nil
}

// release ends the device stream and clears pending.
func (c *Controller) release(ctx context.Context) {
	if err := c.dev.EndDecode(ctx); err != nil {
		log.LogWithError(err).Error("Failed to stop scanner")
	}
	c.mu.Lock()
	c.pending = false
	c.mu.Unlock()
}

// Hide is called when the surface stops being visible. A running session
// is stopped.
func (c *Controller) Hide(ctx context.Context) {
	c.mu.Lock()
	active := c.session.Status == Running || c.pending
	c.mu.Unlock()
	if !active {
		return
	}
	log.Debug("Surface hidden, stopping scanner")
	c.Stop(ctx)
}

// SwitchCamera restarts decoding on the next enumerated camera. It is not
// atomic: if the restart fails the session is left Stopped.
func (c *Controller) SwitchCamera(ctx context.Context) error {
	c.mu.Lock()
	if c.session.Status != Running {
		c.mu.Unlock()
		return c.emitError(errors.NewKind(errors.InvalidOperation, "scanner is not running"))
	}
	if c.pending {
		c.mu.Unlock()
		return c.emitError(errors.ErrOperationPending)
	}
	n := len(c.session.Cameras)
	if n <= 1 {
		c.mu.Unlock()
		return c.emitError(errors.ErrOnlyOneCameraAvailable)
	}
	tok := uuid.New()
	c.token = tok
	c.pending = true
	next := (c.session.ActiveCameraIndex + 1) % n
	camera := c.session.Cameras[next]
	c.mu.Unlock()
	c.emit(Event{Kind: EventStateChanged})

	if err := c.dev.EndDecode(ctx); err != nil {
		log.LogWithError(err).Error("Failed to stop scanner")
	}

	c.mu.Lock()
	if c.token != tok {
		c.pending = false
		c.mu.Unlock()
		c.emit(Event{Kind: EventStateChanged})
		return nil
	}
	c.session.ActiveCameraIndex = next
	c.mu.Unlock()

	err := c.dev.BeginDecode(ctx, camera.ID, c.cfg, c.decodedFor(tok), c.frameError)
	return c.finishBegin(ctx, tok, camera, err, true)
}

// Reset clears the current file record and returns to Idle. The camera
// list is kept.
func (c *Controller) Reset() error {
	c.mu.Lock()
	if c.session.Status == Running {
		c.mu.Unlock()
		return c.emitError(errors.NewKind(errors.InvalidOperation, "cannot reset while scanning"))
	}
	if c.pending {
		c.mu.Unlock()
		return c.emitError(errors.ErrOperationPending)
	}
	c.token = uuid.Nil
	c.result = nil
	c.fileStatus = ""
	c.session.Status = Idle
	c.mu.Unlock()

	log.Info("Scanner reset")
	c.emit(Event{Kind: EventNotice, Message: NoticeReset})
	return nil
}

// Download saves the current file record through the configured
// downloader and reports completion once it is stored.
func (c *Controller) Download(ctx context.Context) (*download.Receipt, error) {
	c.mu.Lock()
	if c.result == nil {
		c.mu.Unlock()
		return nil, c.emitError(errors.ErrNoFileAvailable)
	}
	if c.downloading {
		c.mu.Unlock()
		return nil, c.emitError(errors.NewKind(errors.OperationPending, "a download is already in progress"))
	}
	if c.downloader == nil {
		c.mu.Unlock()
		return nil, c.emitError(errors.NewKind(errors.DownloadFailed, "downloads are not configured"))
	}
	record := c.result
	target := *record
	c.downloading = true
	c.fileStatus = scan.StatusDownloading
	c.mu.Unlock()
	c.emit(Event{Kind: EventDownloadStarted})

	receipt, err := c.downloader.Download(ctx, &target)

	c.mu.Lock()
	c.downloading = false
	if c.result == record {
		if err != nil {
			c.fileStatus = scan.StatusReady
		} else {
			c.fileStatus = scan.StatusDownloaded
		}
	}
	c.mu.Unlock()

	if err != nil {
		return nil, c.emitError(err)
	}
	c.emit(Event{Kind: EventDownloaded, Message: NoticeDownloaded, Receipt: receipt})
	return receipt, nil
}

// decodedFor returns the decode callback of the run started under tok.
func (c *Controller) decodedFor(tok uuid.UUID) func(string) {
	return func(text string) {
		c.handleDecoded(tok, text)
	}
}

func (c *Controller) handleDecoded(tok uuid.UUID, text string) {
	c.mu.Lock()
	if tok == uuid.Nil || c.token != tok {
		c.mu.Unlock()
		log.LogWithFields(log.F("payload", text)).Debug("Dropped payload from a stopped scan")
		return
	}

	result := c.handler.Handle(text)
	if !result.Accepted() {
		c.fileStatus = result.Status()
		c.mu.Unlock()
		c.emit(Event{Kind: EventRejected, Message: result.Status(), Err: result.Err()})
		return
	}

	c.result = &result
	c.fileStatus = scan.StatusReady
	c.token = uuid.Nil
	c.session.Status = Stopped
	wasPending := c.pending
	c.pending = true
	c.mu.Unlock()

	if err := c.dev.EndDecode(context.Background()); err != nil {
		log.LogWithError(err).Error("Failed to stop scanner")
	}
	c.mu.Lock()
	c.pending = wasPending
	c.mu.Unlock()

	log.LogWithFields(log.F("url", result.ResolvedURL), log.F("filename", result.DisplayFilename)).Info("QR code accepted")
	c.emit(Event{Kind: EventAccepted, Message: NoticeScanned})
}

func (c *Controller) frameError(err error) {
	log.LogWithFields(log.F("error", err)).Debug("QR Code scan error")
}

func (c *Controller) onFatal(err error) {
	c.mu.Lock()
	if c.session.Status != Running {
		c.mu.Unlock()
		return
	}
	c.token = uuid.Nil
	c.session.Status = Stopped
	c.mu.Unlock()

	log.LogWithError(err).Error("QR Scanner Error")
	c.emit(Event{Kind: EventNotice, Message: NoticeScannerError, Err: err})
}
