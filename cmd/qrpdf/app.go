package main

import (
	"context"
	"strings"

	"qrpdf/internal/config"
	"qrpdf/internal/device"
	"qrpdf/internal/download"
	"qrpdf/internal/errors"
	"qrpdf/internal/session"
)

// newDevice opens the camera directory tree of cfg.
func newDevice(cfg *config.Config) (*device.DirDevice, error) {
	return device.NewDirDevice(cfg.Camera.Root, cfg.Camera.FramePattern, nil)
}

// newTrigger builds the download pipeline: the local download directory
// plus a mirror for each configured bucket.
func newTrigger(ctx context.Context, cfg *config.Config) (*download.Trigger, error) {
	sinks := []download.Sink{download.NewLocalSink(cfg.Download.Directory)}

	if bucket := cfg.Download.GCSBucket; bucket != "" {
		// "bucket/some/prefix" stores objects under the prefix.
		bucket, prefix, _ := strings.Cut(bucket, "/")
		gcs, err := download.NewGCSSink(ctx, bucket, prefix)
		if err != nil {
			return nil, errors.NewConfigError("cannot create storage client", "download.gcs_bucket", errors.InvalidConfig, err)
		}
		sinks = append(sinks, gcs)
	}
	if s3cfg := cfg.Download.S3; s3cfg.Bucket != "" {
		bucket, prefix, _ := strings.Cut(s3cfg.Bucket, "/")
		s3, err := download.NewS3Sink(ctx, bucket, prefix, download.S3Options{Region: s3cfg.Region, Endpoint: s3cfg.Endpoint})
		if err != nil {
			return nil, errors.NewConfigError("cannot create S3 client", "download.s3.bucket", errors.InvalidConfig, err)
		}
		sinks = append(sinks, s3)
	}

	fetcher := download.NewFetcher(cfg.DownloadTimeout(), cfg.Download.UserAgent)
	return download.NewTrigger(fetcher, sinks,
		download.WithInspect(cfg.Download.Inspect),
		download.WithMaxBytes(cfg.Download.MaxBytes),
	), nil
}

// components is everything an interactive surface needs.
type components struct {
	dev     *device.DirDevice
	trigger *download.Trigger
	ctrl    *session.Controller
}

func newComponents(ctx context.Context, cfg *config.Config) (*components, error) {
	dev, err := newDevice(cfg)
	if err != nil {
		return nil, err
	}
	trigger, err := newTrigger(ctx, cfg)
	if err != nil {
		return nil, err
	}
	ctrl := session.NewController(dev, session.WithDownloader(trigger))
	return &components{dev: dev, trigger: trigger, ctrl: ctrl}, nil
}
