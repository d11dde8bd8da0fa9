package server

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"sync"
	"time"

	"qrpdf/internal/device"
	"qrpdf/internal/download"
	"qrpdf/internal/errors"
	"qrpdf/internal/log"
	"qrpdf/internal/notify"
	"qrpdf/internal/session"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Server holds the session a browser front-end drives.
type Server struct {
	id        uuid.UUID
	started   time.Time
	ctx       context.Context
	ctrl      *session.Controller
	dev       device.Device
	presenter *notify.Presenter
	fetcher   *download.Fetcher

	mu     sync.Mutex
	notice string
}

// New creates a server. Device operations run under ctx rather than the
// request context so a scanner started by one request outlives it.
func New(ctx context.Context, ctrl *session.Controller, dev device.Device, presenter *notify.Presenter, fetcher *download.Fetcher) *Server {
	s := &Server{
		id:        uuid.New(),
		started:   time.Now(),
		ctx:       ctx,
		ctrl:      ctrl,
		dev:       dev,
		presenter: presenter,
		fetcher:   fetcher,
	}
	ctrl.OnEvent(s.apply)
	return s
}

// ID identifies this server instance; it changes on every restart so a
// front-end can tell its session was lost.
func (s *Server) ID() string {
	return s.id.String()
}

func (s *Server) apply(ev session.Event) {
	switch {
	case ev.Blocking():
		s.mu.Lock()
		s.notice = ev.Message
		s.mu.Unlock()
	case ev.Toast():
		s.presenter.Show(ev.Message)
	}
	if ev.Kind == session.EventAccepted || (ev.Kind == session.EventStateChanged && ev.Snapshot.Status == session.Running) {
		s.mu.Lock()
		s.notice = ""
		s.mu.Unlock()
	}
}

type notificationView struct {
	Message string `json:"message"`
	Leaving bool   `json:"leaving,omitempty"`
}

// StateResponse is the body of every session endpoint.
type StateResponse struct {
	Instance     string            `json:"instance"`
	Session      session.Snapshot  `json:"session"`
	Triggers     session.Triggers  `json:"triggers"`
	Notification *notificationView `json:"notification,omitempty"`
	Notice       string            `json:"notice,omitempty"`
}

type errorResponse struct {
	Error string         `json:"error"`
	Kind  string         `json:"kind,omitempty"`
	State *StateResponse `json:"state,omitempty"`
}

func (s *Server) state() StateResponse {
	snap := s.ctrl.Snapshot()
	resp := StateResponse{
		Instance: s.ID(),
		Session:  snap,
		Triggers: session.TriggersFor(snap),
	}
	if n, ok := s.presenter.Current(); ok {
		resp.Notification = &notificationView{Message: n.Message, Leaving: n.Phase == notify.Leaving}
	}
	s.mu.Lock()
	resp.Notice = s.notice
	s.mu.Unlock()
	return resp
}

// HealthHandler reports liveness.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := w.Write([]byte("OK")); err != nil {
		log.Errorf("Unable to write healthcheck: %v", err)
	}
}

// GetSessionHandler returns the session, its triggers and the current
// notification.
func (s *Server) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state())
}

// SessionActionHandler runs a session action named by the route.
func (s *Server) SessionActionHandler(w http.ResponseWriter, r *http.Request) {
	action := mux.Vars(r)["action"]

	var err error
	switch action {
	case "start":
		err = s.ctrl.Start(s.ctx)
	case "stop":
		err = s.ctrl.Stop(s.ctx)
	case "switch":
		err = s.ctrl.SwitchCamera(s.ctx)
	case "reset":
		err = s.ctrl.Reset()
	case "hide":
		s.ctrl.Hide(s.ctx)
	case "dismiss":
		s.mu.Lock()
		s.notice = ""
		s.mu.Unlock()
		s.presenter.Dismiss()
	}

	if err != nil {
		log.LogWithFields(log.F("action", action), log.F("error", err)).Debug("Session action failed")
		state := s.state()
		writeJSON(w, statusFor(err), errorResponse{
			Error: errors.Describe(err),
			Kind:  errors.KindOf(err).String(),
			State: &state,
		})
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

// GetCamerasHandler enumerates the cameras the device offers right now.
func (s *Server) GetCamerasHandler(w http.ResponseWriter, r *http.Request) {
	cameras, err := s.dev.EnumerateCameras(r.Context())
	if err != nil {
		writeJSON(w, statusFor(err), errorResponse{Error: errors.Describe(err), Kind: errors.KindOf(err).String()})
		return
	}
	if cameras == nil {
		cameras = []device.CameraDescriptor{}
	}
	writeJSON(w, http.StatusOK, cameras)
}

// DownloadHandler saves the current file through the configured sinks and
// returns the receipt.
func (s *Server) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.ctrl.Download(r.Context())
	if err != nil {
		writeJSON(w, statusFor(err), errorResponse{Error: errors.Describe(err), Kind: errors.KindOf(err).String()})
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// ServeFileHandler streams the current file to the client as an attachment
// named after the scanned file, the way a browser link download would.
func (s *Server) ServeFileHandler(w http.ResponseWriter, r *http.Request) {
	result, ok := s.ctrl.CurrentResult()
	if !ok {
		err := errors.ErrNoFileAvailable
		writeJSON(w, statusFor(err), errorResponse{Error: errors.Describe(err), Kind: errors.KindOf(err).String()})
		return
	}

	resp, err := s.fetcher.Fetch(r.Context(), result.ResolvedURL)
	if err != nil {
		writeJSON(w, statusFor(err), errorResponse{Error: errors.Describe(err), Kind: errors.KindOf(err).String()})
		return
	}
	defer resp.Body.Close()

	name := download.SafeFilename(result.DisplayFilename)
	w.Header().Set("Content-Type", resp.DetectContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, resp.Body); err != nil {
		log.LogWithFields(log.F("url", result.ResolvedURL), log.F("error", err)).Warn("Streaming file to client failed")
	}
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch errors.KindOf(err) {
	case errors.InvalidOperation, errors.OperationPending, errors.DeviceBusy, errors.OnlyOneCameraAvailable:
		return http.StatusConflict
	case errors.NoCameraFound, errors.DeviceNotFound, errors.NoFileAvailable:
		return http.StatusNotFound
	case errors.PermissionDenied:
		return http.StatusForbidden
	case errors.DownloadFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Errorf("Unable to encode JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, errorResponse{Error: message})
}
