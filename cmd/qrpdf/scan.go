package main

import (
	"qrpdf/internal/notify"
	"qrpdf/internal/tui"

	"github.com/spf13/cobra"
)

// NewScanCmd creates the terminal scanner command
func NewScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "scan",
		Short:       "Scan QR codes in the terminal user interface",
		Long:        `Start the terminal scanner. Keys: s start, x stop, c switch camera, d download, r reset, q quit.`,
		Annotations: map[string]string{logToFile: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newComponents(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return tui.Run(cmd.Context(), c.ctrl, notify.NewPresenter())
		},
	}
}
