package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"qrpdf/internal/log"
	"qrpdf/internal/notify"
	"qrpdf/internal/server"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewServeCmd creates the HTTP API command
func NewServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scanner session over HTTP",
		Long: `Starts an HTTP API that drives the scanner for a browser front-end.

  GET  /api/session                 session, triggers and notification
  POST /api/session/{action}        start, stop, switch, reset, hide, dismiss
  GET  /api/cameras                 cameras currently available
  GET  /api/download                stream the scanned PDF as an attachment
  POST /api/download                save the scanned PDF to the download sinks
  GET  /healthcheck`,
		Example: `  # Serve on the configured address
  qrpdf serve

  # Serve on a custom address
  qrpdf serve --listen 127.0.0.1:9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen == "" {
				listen = cfg.Server.Listen
			}
			ctx := cmd.Context()

			c, err := newComponents(ctx, cfg)
			if err != nil {
				return err
			}
			srv := server.New(ctx, c.ctrl, c.dev, notify.NewPresenter(), c.trigger.Fetcher())

			httpServer := &http.Server{
				Addr:              listen,
				Handler:           server.NewRouter(srv),
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.LogWithFields(log.F("addr", listen), log.F("instance", srv.ID())).Info("Scanner API available")
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				log.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := c.ctrl.Stop(shutdownCtx); err != nil {
					log.Warnf("Stopping scanner: %v", err)
				}
				return httpServer.Shutdown(shutdownCtx)
			})

			if err := g.Wait(); err != nil {
				return err
			}
			log.Info("Server stopped")
			return nil
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "address to listen on (default from server.listen)")

	return cmd
}
