package main

import (
	"qrpdf/internal/scan"

	"github.com/spf13/cobra"
)

// NewCheckCmd creates the command running a payload through the decode
// result gates
func NewCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <text>",
		Short: "Check whether a QR code payload would be accepted",
		Example: `  qrpdf check https://example.com/files/manual.pdf
  qrpdf check 'https://example.com/doc.pdf?v=2'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result := scan.NewHandler().Handle(args[0])

			printf(cmd, "Payload:  %s\n", result.RawText)
			printf(cmd, "Valid:    %t\n", result.IsValidURL)
			printf(cmd, "PDF:      %t\n", result.IsPDF)
			if result.Accepted() {
				printf(cmd, "Name:     %s\n", result.DisplayFilename)
				printf(cmd, "Type:     %s\n", scan.FileType)
			}
			printf(cmd, "Status:   %s\n", result.Status())
			return result.Err()
		},
	}
}
