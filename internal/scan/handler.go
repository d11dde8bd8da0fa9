package scan

import (
	"qrpdf/internal/errors"
	"qrpdf/internal/log"
)

// FileType is the type label shown for accepted results.
const FileType = "PDF Document"

// Status lines shown next to the current file record.
const (
	StatusReady       = "Ready to download"
	StatusDownloading = "Downloading..."
	StatusDownloaded  = "Download complete!"
	StatusInvalidURL  = "Invalid URL scanned"
	StatusNotPDF      = "Scanned file is not a PDF"
)

// Result describes the outcome of validating one decoded payload.
type Result struct {
	RawText         string `json:"raw_text"`
	IsValidURL      bool   `json:"is_valid_url"`
	IsPDF           bool   `json:"is_pdf"`
	ResolvedURL     string `json:"resolved_url,omitempty"`
	DisplayFilename string `json:"display_filename,omitempty"`
}

// Accepted reports whether the payload passed every gate.
func (r Result) Accepted() bool {
	return r.IsValidURL && r.IsPDF
}

// Err returns the rejection reason, or nil for an accepted result.
func (r Result) Err() error {
	switch {
	case !r.IsValidURL:
		return errors.NewScanError("invalid URL", r.RawText, errors.InvalidScannedURL, nil)
	case !r.IsPDF:
		return errors.NewScanError("not a PDF", r.RawText, errors.NotAPDF, nil)
	}
	return nil
}

// Status returns the status line for the result.
func (r Result) Status() string {
	switch {
	case !r.IsValidURL:
		return StatusInvalidURL
	case !r.IsPDF:
		return StatusNotPDF
	}
	return StatusReady
}

// Handler applies the URL and PDF gates to decoded payloads.
type Handler struct{}

// NewHandler creates a decode result handler.
func NewHandler() *Handler {
	return &Handler{}
}

// Handle evaluates one payload. Gates short-circuit in order: URL
// validity, then the ".pdf" suffix.
func (h *Handler) Handle(raw string) Result {
	log.LogWithFields(log.F("payload", raw)).Info("Scanned URL")

	result := Result{RawText: raw}
	if !IsValidURL(raw) {
		return result
	}
	result.IsValidURL = true

	if !HasPDFSuffix(raw) {
		return result
	}
	result.IsPDF = true
	result.ResolvedURL = TrimURL(raw)
	result.DisplayFilename = DisplayFilename(result.ResolvedURL)
	return result
}
