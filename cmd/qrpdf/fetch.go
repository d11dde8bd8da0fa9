package main

import (
	"qrpdf/internal/scan"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// NewFetchCmd creates the headless download command
func NewFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <url>",
		Short: "Download a PDF link without scanning",
		Long:  `Run a link through the same checks as a scanned code and save the file to the download sinks.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result := scan.NewHandler().Handle(args[0])
			if err := result.Err(); err != nil {
				return err
			}

			trigger, err := newTrigger(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			printf(cmd, "Downloading %s\n", result.DisplayFilename)
			receipt, err := trigger.Download(cmd.Context(), &result)
			if err != nil {
				return err
			}

			for _, loc := range receipt.Locations {
				printf(cmd, "Saved %s\n", loc)
			}
			size := humanize.Bytes(uint64(receipt.Bytes))
			if receipt.Pages > 0 {
				printf(cmd, "%s, %d pages\n", size, receipt.Pages)
			} else {
				printf(cmd, "%s\n", size)
			}
			return nil
		},
	}
}
