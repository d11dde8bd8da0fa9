package main

import (
	"qrpdf/internal/errors"

	"github.com/spf13/cobra"
)

// NewCamerasCmd creates the command listing the available cameras
func NewCamerasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cameras",
		Short: "List the cameras the scanner can use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := newDevice(cfg)
			if err != nil {
				return err
			}
			cameras, err := dev.EnumerateCameras(cmd.Context())
			if err != nil {
				return err
			}
			if len(cameras) == 0 {
				return errors.ErrNoCameraFound
			}
			for i, c := range cameras {
				printf(cmd, "%d  %s\n", i, c)
			}
			return nil
		},
	}
}
