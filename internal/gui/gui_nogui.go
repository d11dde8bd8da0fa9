//go:build nogui
// +build nogui

package gui

import (
	"context"
	"fmt"

	"qrpdf/internal/notify"
	"qrpdf/internal/session"
)

// Run is a stub implementation for builds with GUI disabled
func Run(ctx context.Context, ctrl *session.Controller, presenter *notify.Presenter) error {
	return fmt.Errorf("GUI not available in this build, use the scan command instead")
}

// IsGUIAvailable returns whether the GUI is available in this build
func IsGUIAvailable() bool {
	return false
}
