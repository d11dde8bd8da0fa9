package main

import (
	"qrpdf/internal/gui"
	"qrpdf/internal/notify"

	"github.com/spf13/cobra"
)

// NewGUICmd creates the GUI command for the CLI
func NewGUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gui",
		Short: "Launch the graphical user interface",
		Long:  `Open the scanner in a desktop window.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newComponents(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return gui.Run(cmd.Context(), c.ctrl, notify.NewPresenter())
		},
	}
}
