package main

import (
	"fmt"
	"io"

	"qrpdf/internal/config"
	"qrpdf/internal/log"
	"qrpdf/internal/tui/styles"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
	cfg     *config.Config
)

// logToFile marks commands that own the terminal; their log lines go to the
// configured log file only.
const logToFile = "log-to-file"

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "qrpdf",
		Short: "Scan a QR code and download the PDF it links to",
		Long: `qrpdf watches a camera for QR codes. As soon as a code holding a link
to a PDF is read the scanner stops and the file is ready to download.

Cameras are directories under camera.root; every image or text file
dropped into a camera directory is a frame.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			var configErr error
			if cfgFile != "" {
				cfg, configErr = config.LoadConfigFile(cfgFile)
			} else {
				cfg, configErr = config.LoadConfig()
			}
			if configErr != nil {
				return configErr
			}
			if cmd.Flags().Changed("debug") {
				cfg.Log.Debug = debug
			}

			configureLogging(cmd, cfg)
			styles.ApplyConfig(cfg)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			log.Close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/qrpdf/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(NewScanCmd())
	rootCmd.AddCommand(NewGUICmd())
	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewCamerasCmd())
	rootCmd.AddCommand(NewCheckCmd())
	rootCmd.AddCommand(NewFetchCmd())

	return rootCmd
}

func configureLogging(cmd *cobra.Command, cfg *config.Config) {
	var opts []log.Option
	if cmd.Annotations[logToFile] == "true" {
		opts = append(opts, log.WithOutput(io.Discard))
	} else {
		opts = append(opts, log.WithOutput(cmd.ErrOrStderr()))
	}
	if cfg.Log.JSON {
		opts = append(opts, log.WithJSON())
	}
	if cfg.Log.File != "" {
		opts = append(opts, log.WithFile(cfg.Log.File))
	}
	log.Configure(opts...)
	log.SetDebug(cfg.Log.Debug)
	log.LogWithFields(
		log.F("camera_root", cfg.Camera.Root),
		log.F("download_dir", cfg.Download.Directory),
	).Debug("Configuration loaded")
}

func printf(cmd *cobra.Command, format string, args ...interface{}) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
