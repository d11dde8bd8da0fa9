package download

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"qrpdf/internal/errors"
	"qrpdf/internal/log"
	"qrpdf/internal/scan"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/errgroup"
)

func init() {
	// pdfcpu would otherwise create its own configuration directory on first use.
	api.DisableConfigDir()
}

// Receipt describes a completed download.
type Receipt struct {
	URL       string   `json:"url"`
	Filename  string   `json:"filename"`
	Locations []string `json:"locations"`
	Bytes     int64    `json:"bytes"`
	// ContentType is sniffed from the body, not taken from the response.
	ContentType string        `json:"content_type,omitempty"`
	Pages       int           `json:"pages,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// DefaultMaxBytes caps a download when no limit is configured.
const DefaultMaxBytes int64 = 100 << 20

// Option configures a Trigger.
type Option func(*Trigger)

// WithInspect enables the page count step after the fetch.
func WithInspect(enabled bool) Option {
	return func(t *Trigger) {
		t.inspect = enabled
	}
}

// WithSpoolDir sets where fetched bodies are buffered before the sinks
// run. The default is the system temp directory.
func WithSpoolDir(dir string) Option {
	return func(t *Trigger) {
		t.spoolDir = dir
	}
}

// WithMaxBytes limits the size of a fetched body. Non-positive values
// select DefaultMaxBytes.
func WithMaxBytes(n int64) Option {
	return func(t *Trigger) {
		if n > 0 {
			t.maxBytes = n
		}
	}
}

// Trigger downloads the current scan result into its sinks.
type Trigger struct {
	fetcher  *Fetcher
	sinks    []Sink
	inspect  bool
	spoolDir string
	maxBytes int64
}

func NewTrigger(fetcher *Fetcher, sinks []Sink, opts ...Option) *Trigger {
	t := &Trigger{fetcher: fetcher, sinks: sinks, maxBytes: DefaultMaxBytes}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Fetcher returns the fetcher used by the trigger.
func (t *Trigger) Fetcher() *Fetcher {
	return t.fetcher
}

// Download saves result's file under its display name. A nil result, or
// one that was never accepted, yields NoFileAvailable and does nothing.
func (t *Trigger) Download(ctx context.Context, result *scan.Result) (*Receipt, error) {
	if result == nil || result.ResolvedURL == "" {
		return nil, errors.ErrNoFileAvailable
	}
	if len(t.sinks) == 0 {
		return nil, errors.NewKind(errors.DownloadFailed, "no download destination configured")
	}

	start := time.Now()
	filename := SafeFilename(result.DisplayFilename)
	logger := log.LogWithFields(log.F("url", result.ResolvedURL), log.F("filename", filename))
	logger.Info("Downloading file")

	spool, size, err := t.spool(ctx, result.ResolvedURL)
	if err != nil {
		logger.WithError(err).Error("Download failed")
		return nil, err
	}
	defer os.Remove(spool)

	receipt := &Receipt{
		URL:       result.ResolvedURL,
		Filename:  filename,
		Locations: make([]string, len(t.sinks)),
		Bytes:     size,
	}
	receipt.ContentType = contentType(spool)
	if receipt.ContentType != PDFContentType {
		logger.With(log.F("content_type", receipt.ContentType)).Warn("Downloaded file does not look like a PDF")
	}
	if t.inspect {
		receipt.Pages = pageCount(spool)
	}

	eg, gctx := errgroup.WithContext(ctx)
	for i, sink := range t.sinks {
		eg.Go(func() error {
			f, err := os.Open(spool)
			if err != nil {
				return fmt.Errorf("%s: %w", sink.Name(), err)
			}
			defer f.Close()

			location, err := sink.Save(gctx, filename, f)
			if err != nil {
				return fmt.Errorf("%s: %w", sink.Name(), err)
			}
			receipt.Locations[i] = location
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		err = errors.WrapKind(err, errors.DownloadFailed, "saving file failed")
		logger.WithError(err).Error("Download failed")
		return nil, err
	}

	receipt.Duration = time.Since(start)
	logger.With(
		log.F("bytes", receipt.Bytes),
		log.F("pages", receipt.Pages),
		log.F("duration", receipt.Duration),
	).Info("Download complete")
	return receipt, nil
}

// spool copies the response body into a temporary file.
func (t *Trigger) spool(ctx context.Context, url string) (string, int64, error) {
	resp, err := t.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.Size > t.maxBytes {
		return "", 0, t.tooLarge()
	}

	tmp, err := os.CreateTemp(t.spoolDir, "qrpdf-*.pdf")
	if err != nil {
		return "", 0, errors.WrapKind(err, errors.DownloadFailed, "cannot buffer download")
	}
	// One byte past the limit tells an oversized body from one that fits exactly.
	n, err := io.Copy(tmp, io.LimitReader(resp.Body, t.maxBytes+1))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", 0, errors.WrapKind(err, errors.DownloadFailed, "reading response failed")
	}
	if n > t.maxBytes {
		os.Remove(tmp.Name())
		return "", 0, t.tooLarge()
	}
	return tmp.Name(), n, nil
}

func (t *Trigger) tooLarge() error {
	return errors.NewKind(errors.DownloadFailed, fmt.Sprintf("file is larger than %s", humanize.IBytes(uint64(t.maxBytes))))
}

func contentType(path string) string {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return ""
	}
	// Drop parameters such as charset.
	return strings.SplitN(mt.String(), ";", 2)[0]
}

// pageCount reports the number of pages, or 0 when the file is not a
// readable PDF. The content is never rejected on that basis.
func pageCount(path string) int {
	n, err := api.PageCountFile(path)
	if err != nil {
		log.LogWithFields(log.F("error", err)).Debug("Could not read page count")
		return 0
	}
	return n
}
