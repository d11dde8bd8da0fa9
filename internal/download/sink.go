package download

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"qrpdf/internal/errors"
	"qrpdf/internal/log"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// FallbackFilename is used when a result's display name is unusable as a
// file name.
const FallbackFilename = "download.pdf"

// PDFContentType is the content type stored with uploaded files.
const PDFContentType = "application/pdf"

// Sink persists a downloaded file.
type Sink interface {
	// Save stores r under name and returns where it ended up.
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Name() string
}

// SafeFilename reduces a display name to a single path element.
func SafeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	switch name {
	case "", ".", "..", "/":
		return FallbackFilename
	}
	return name
}

// LocalSink writes into a directory. Existing files are never overwritten;
// a numbered variant of the name is chosen instead.
type LocalSink struct {
	dir string
}

func NewLocalSink(dir string) *LocalSink {
	return &LocalSink{dir: dir}
}

func (s *LocalSink) Name() string {
	return "local:" + s.dir
}

func (s *LocalSink) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("create download directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".qrpdf-*.part")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, contextReader{ctx: ctx, r: r}); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}

	dest, err := s.claim(SafeFilename(name))
	if err != nil {
		return "", err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("commit %s: %w", dest, err)
	}
	return dest, nil
}

// claim reserves the first free variant of name: "a.pdf", "a (1).pdf", ...
func (s *LocalSink) claim(name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 0; i < 1000; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		dest := filepath.Join(s.dir, candidate)
		f, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("reserve %s: %w", dest, err)
		}
		f.Close()
		return dest, nil
	}
	return "", errors.Newf("too many files named %s in %s", name, s.dir)
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// GCSSink uploads into a Cloud Storage bucket. Objects are created only if
// absent; an existing object with the same name counts as saved.
type GCSSink struct {
	bucket *storage.BucketHandle
	name   string
	prefix string
}

// NewGCSSink opens a client for bucket. The client lives as long as the
// process.
func NewGCSSink(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCSSink, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSSink{bucket: client.Bucket(bucket), name: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

func (s *GCSSink) Name() string {
	return "gcs:" + s.name
}

// ObjectName returns the object a file called name is stored as.
func (s *GCSSink) ObjectName(name string) string {
	name = SafeFilename(name)
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *GCSSink) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	object := s.ObjectName(name)
	location := fmt.Sprintf("gs://%s/%s", s.name, object)

	// Cancelling the writer's context aborts the upload; Close alone would
	// commit a truncated object.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	writer := s.bucket.Object(object).If(storage.Conditions{DoesNotExist: true}).NewWriter(wctx)
	writer.ContentType = PDFContentType

	if _, err := io.Copy(writer, r); err != nil {
		cancel()
		_ = writer.Close()
		return "", fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := writer.Close(); err != nil {
		if gerr, ok := err.(*googleapi.Error); ok && gerr.Code == 412 {
			log.LogWithFields(log.F("object", location)).Info("Object already exists, skipping upload")
			return location, nil
		}
		return "", fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return location, nil
}
