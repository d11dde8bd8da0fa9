// Package download saves the file behind an accepted scan result.
//
// A Trigger fetches the resolved URL once, spools the body to a temporary
// file and hands it to every configured Sink concurrently. Completion is
// reported after all sinks have committed the file.
package download

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"qrpdf/internal/errors"
	"qrpdf/internal/log"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultTimeout bounds a single fetch when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Response is an open fetch. The caller must close Body.
type Response struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
}

// sniffLen is how much of a body is inspected when the server declares no
// useful content type.
const sniffLen = 3072

// DetectContentType returns the declared content type, or one sniffed from
// the start of the body when the server sent none or a generic one. Body
// still yields every byte afterwards.
func (r *Response) DetectContentType() string {
	if mediaType, _, err := mime.ParseMediaType(r.ContentType); err == nil && mediaType != "application/octet-stream" {
		return r.ContentType
	}
	br := bufio.NewReaderSize(r.Body, sniffLen)
	head, _ := br.Peek(sniffLen)
	r.Body = struct {
		io.Reader
		io.Closer
	}{br, r.Body}
	return mimetype.Detect(head).String()
}

// Fetcher performs the HTTP GET for a resolved URL.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher creates a fetcher. A non-positive timeout selects DefaultTimeout.
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Fetch starts the download of url. Non-2xx responses are DownloadFailed
// errors.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WrapKind(err, errors.DownloadFailed, "cannot build request")
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "application/pdf, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.WrapKind(err, errors.DownloadFailed, "request failed")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, errors.WrapKind(fmt.Errorf("%s", resp.Status), errors.DownloadFailed, "unexpected response")
	}

	log.LogWithFields(
		log.F("url", url),
		log.F("status", resp.StatusCode),
		log.F("content_type", resp.Header.Get("Content-Type")),
	).Debug("Fetch started")

	return &Response{
		Body:        resp.Body,
		Size:        resp.ContentLength,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
