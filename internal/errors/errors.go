// Package errors provides standardized error handling for qrpdf.
// It defines the error kinds surfaced by the scanner session, the device
// layer and the download trigger, plus helpers for consistent creation,
// wrapping and classification.
package errors

import (
	"errors"
	"fmt"
)

// Standard errors package errors that we re-export for convenience
var (
	// Unwrap unwraps an error to access the underlying error
	Unwrap = errors.Unwrap
	// Is reports whether any error in err's chain matches target
	Is = errors.Is
	// As finds the first error in err's chain that matches target
	As = errors.As
)

// ErrorKind represents the kind of error
type ErrorKind int

// Error kinds
const (
	Unknown ErrorKind = iota
	// Device error kinds
	PermissionDenied
	DeviceNotFound
	DeviceBusy
	DeviceEnumerationError
	DeviceStartError
	NoCameraFound
	OnlyOneCameraAvailable
	// Scan content error kinds
	InvalidScannedURL
	NotAPDF
	NoFileAvailable
	// Config error kinds
	InvalidConfig
	ConfigNotFound
	// Session and download error kinds
	InvalidOperation
	OperationPending
	DownloadFailed
)

var kindNames = map[ErrorKind]string{
	Unknown:                "Unknown",
	PermissionDenied:       "PermissionDenied",
	DeviceNotFound:         "DeviceNotFound",
	DeviceBusy:             "DeviceBusy",
	DeviceEnumerationError: "DeviceEnumerationError",
	DeviceStartError:       "DeviceStartError",
	NoCameraFound:          "NoCameraFound",
	OnlyOneCameraAvailable: "OnlyOneCameraAvailable",
	InvalidScannedURL:      "InvalidScannedUrl",
	NotAPDF:                "NotAPdf",
	NoFileAvailable:        "NoFileAvailable",
	InvalidConfig:          "InvalidConfig",
	ConfigNotFound:         "ConfigNotFound",
	InvalidOperation:       "InvalidOperation",
	OperationPending:       "OperationPending",
	DownloadFailed:         "DownloadFailed",
}

// String returns the taxonomy name of the kind.
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Blocking reports whether errors of this kind are shown as a blocking
// notice (dialog, banner) rather than a transient status message.
func (k ErrorKind) Blocking() bool {
	switch k {
	case PermissionDenied, DeviceNotFound, DeviceBusy, DeviceEnumerationError,
		DeviceStartError, NoCameraFound, OnlyOneCameraAvailable, NoFileAvailable:
		return true
	}
	return false
}

// Common error constants for frequently occurring errors
var (
	ErrNoCameraFound          = NewDeviceError("no cameras found", "", NoCameraFound, nil)
	ErrOnlyOneCameraAvailable = NewDeviceError("only one camera is available", "", OnlyOneCameraAvailable, nil)
	ErrNoFileAvailable        = NewScanError("no file URL available", "", NoFileAvailable, nil)
	ErrInvalidConfig          = NewConfigError("invalid configuration", "", InvalidConfig, nil)
	ErrOperationPending       = &ApplicationError{msg: "a device operation is already pending", kind: OperationPending}
)

// ApplicationError is the base error type for all application errors
type ApplicationError struct {
	msg  string
	err  error
	kind ErrorKind
}

// Error returns the error message
func (e *ApplicationError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

// Unwrap returns the wrapped error
func (e *ApplicationError) Unwrap() error {
	return e.err
}

// Kind returns the kind of error
func (e *ApplicationError) Kind() ErrorKind {
	return e.kind
}

// DeviceError represents errors raised by the camera device layer
type DeviceError struct {
	ApplicationError
	camera string
}

// NewDeviceError creates a new device error
func NewDeviceError(msg string, camera string, kind ErrorKind, err error) *DeviceError {
	return &DeviceError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		camera: camera,
	}
}

// Error returns the device error message
func (e *DeviceError) Error() string {
	if e.camera != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.camera, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.camera)
	}
	return e.ApplicationError.Error()
}

// Camera returns the camera id associated with the error
func (e *DeviceError) Camera() string {
	return e.camera
}

// ScanError represents a rejected or missing scan payload
type ScanError struct {
	ApplicationError
	payload string
}

// NewScanError creates a new scan error
func NewScanError(msg string, payload string, kind ErrorKind, err error) *ScanError {
	return &ScanError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		payload: payload,
	}
}

// Error returns the scan error message
func (e *ScanError) Error() string {
	if e.payload != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %q: %v", e.msg, e.payload, e.err)
		}
		return fmt.Sprintf("%s: %q", e.msg, e.payload)
	}
	return e.ApplicationError.Error()
}

// Payload returns the decoded text associated with the error
func (e *ScanError) Payload() string {
	return e.payload
}

// ConfigError represents errors related to configuration
type ConfigError struct {
	ApplicationError
	param string
}

// NewConfigError creates a new configuration error
func NewConfigError(msg string, param string, kind ErrorKind, err error) *ConfigError {
	return &ConfigError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		param: param,
	}
}

// Error returns the config error message
func (e *ConfigError) Error() string {
	if e.param != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.param, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.param)
	}
	return e.ApplicationError.Error()
}

// Param returns the configuration parameter associated with the error
func (e *ConfigError) Param() string {
	return e.param
}

// New creates a new error with a message
func New(msg string) error {
	return &ApplicationError{
		msg:  msg,
		kind: Unknown,
	}
}

// Newf creates a new error with a formatted message
func Newf(format string, args ...interface{}) error {
	return &ApplicationError{
		msg:  fmt.Sprintf(format, args...),
		kind: Unknown,
	}
}

// NewKind creates a new error of the given kind
func NewKind(kind ErrorKind, msg string) error {
	return &ApplicationError{
		msg:  msg,
		kind: kind,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{
		msg:  msg,
		err:  err,
		kind: Unknown,
	}
}

// Wrapf wraps an existing error with additional formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{
		msg:  fmt.Sprintf(format, args...),
		err:  err,
		kind: Unknown,
	}
}

// WrapKind wraps an existing error and tags it with a kind
func WrapKind(err error, kind ErrorKind, msg string) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{
		msg:  msg,
		err:  err,
		kind: kind,
	}
}

type kinded interface {
	Kind() ErrorKind
}

// KindOf returns the first non-Unknown kind found in err's chain.
func KindOf(err error) ErrorKind {
	for err != nil {
		if k, ok := err.(kinded); ok && k.Kind() != Unknown {
			return k.Kind()
		}
		err = errors.Unwrap(err)
	}
	return Unknown
}

// IsKind reports whether any error in err's chain carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	for err != nil {
		if k, ok := err.(kinded); ok && k.Kind() == kind {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsInvalidConfig checks if the error is an invalid configuration error
func IsInvalidConfig(err error) bool {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr.Kind() == InvalidConfig
	}
	return false
}

// IsDeviceError checks if the error came from the device layer
func IsDeviceError(err error) bool {
	var devErr *DeviceError
	return errors.As(err, &devErr)
}

// IsScanError checks if the error describes a rejected scan payload
func IsScanError(err error) bool {
	var scanErr *ScanError
	return errors.As(err, &scanErr)
}

// Describe returns the user-facing notice for err.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case PermissionDenied:
		return "Camera access denied. Please allow camera access in your settings."
	case DeviceNotFound:
		return "Camera access denied. No camera found on your device."
	case DeviceBusy:
		return "Camera access denied. Camera is already in use by another application."
	case NoCameraFound:
		return "No cameras found. Please check your camera permissions."
	case OnlyOneCameraAvailable:
		return "Only one camera is available."
	case DeviceEnumerationError:
		return "Could not list cameras: " + rootMessage(err)
	case DeviceStartError:
		return "Error starting scanner: " + rootMessage(err)
	case InvalidScannedURL:
		return "Invalid URL scanned"
	case NotAPDF:
		return "Scanned file is not a PDF"
	case NoFileAvailable:
		return "No file URL available. Please scan a QR code first."
	case OperationPending:
		return "Please wait for the current camera operation to finish."
	case DownloadFailed:
		return "Download failed: " + rootMessage(err)
	}
	return err.Error()
}

func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
