package download

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"qrpdf/internal/errors"
	"qrpdf/internal/scan"
	"qrpdf/pkg/testutils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func pdfServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/My%20File.pdf", "/My File.pdf", "/doc.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			io.WriteString(w, testutils.MinimalPDF)
		case "/chunked.pdf":
			// Flushing before the body forces chunked encoding, so no
			// Content-Length is known up front.
			w.(http.Flusher).Flush()
			io.WriteString(w, testutils.MinimalPDF)
		case "/agent.pdf":
			io.WriteString(w, r.Header.Get("User-Agent"))
		case "/slow.pdf":
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func accepted(t *testing.T, url string) *scan.Result {
	t.Helper()
	r := scan.NewHandler().Handle(url)
	require.True(t, r.Accepted(), url)
	return &r
}

type memorySink struct {
	mu    sync.Mutex
	files map[string][]byte
	err   error
}

func (m *memorySink) Name() string { return "memory" }

func (m *memorySink) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[name] = data
	return "mem://" + name, nil
}

func TestDownloadWithoutResult(t *testing.T) {
	trigger := NewTrigger(NewFetcher(time.Second, ""), []Sink{&memorySink{}})

	_, err := trigger.Download(context.Background(), nil)
	assert.True(t, errors.IsKind(err, errors.NoFileAvailable))

	rejected := scan.NewHandler().Handle("https://ex.com/doc.txt")
	_, err = trigger.Download(context.Background(), &rejected)
	assert.True(t, errors.IsKind(err, errors.NoFileAvailable))
}

func TestDownloadSavesUnderDisplayName(t *testing.T) {
	srv := pdfServer(t)
	dir := t.TempDir()
	mem := &memorySink{}
	trigger := NewTrigger(NewFetcher(5*time.Second, "qrpdf/test"),
		[]Sink{NewLocalSink(dir), mem}, WithInspect(true), WithSpoolDir(t.TempDir()))

	receipt, err := trigger.Download(context.Background(), accepted(t, srv.URL+"/My%20File.pdf"))
	require.NoError(t, err)

	assert.Equal(t, "My File.pdf", receipt.Filename)
	assert.Equal(t, int64(len(testutils.MinimalPDF)), receipt.Bytes)
	assert.Equal(t, PDFContentType, receipt.ContentType)
	require.Len(t, receipt.Locations, 2)
	assert.Equal(t, filepath.Join(dir, "My File.pdf"), receipt.Locations[0])
	assert.Equal(t, "mem://My File.pdf", receipt.Locations[1])

	data, err := os.ReadFile(filepath.Join(dir, "My File.pdf"))
	require.NoError(t, err)
	assert.Equal(t, testutils.MinimalPDF, string(data))
	assert.Equal(t, testutils.MinimalPDF, string(mem.files["My File.pdf"]))
}

func TestDownloadSendsUserAgent(t *testing.T) {
	srv := pdfServer(t)
	mem := &memorySink{}
	trigger := NewTrigger(NewFetcher(5*time.Second, "qrpdf/test"), []Sink{mem})

	receipt, err := trigger.Download(context.Background(), accepted(t, srv.URL+"/agent.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "qrpdf/test", string(mem.files["agent.pdf"]))
	// Saved anyway; only the receipt tells.
	assert.Equal(t, "text/plain", receipt.ContentType)
}

func TestDownloadHTTPError(t *testing.T) {
	srv := pdfServer(t)
	trigger := NewTrigger(NewFetcher(5*time.Second, ""), []Sink{&memorySink{}})

	_, err := trigger.Download(context.Background(), accepted(t, srv.URL+"/missing.pdf"))
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.DownloadFailed))
	assert.Contains(t, err.Error(), "404")
}

func TestDownloadSinkFailure(t *testing.T) {
	srv := pdfServer(t)
	trigger := NewTrigger(NewFetcher(5*time.Second, ""),
		[]Sink{&memorySink{}, &memorySink{err: fmt.Errorf("disk full")}})

	_, err := trigger.Download(context.Background(), accepted(t, srv.URL+"/doc.pdf"))
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.DownloadFailed))
	assert.Contains(t, err.Error(), "disk full")
}

func TestDownloadCancelled(t *testing.T) {
	srv := pdfServer(t)
	trigger := NewTrigger(NewFetcher(5*time.Second, ""), []Sink{&memorySink{}})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := trigger.Download(ctx, accepted(t, srv.URL+"/slow.pdf"))
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.DownloadFailed))
}

func TestDownloadSizeLimit(t *testing.T) {
	srv := pdfServer(t)
	size := int64(len(testutils.MinimalPDF))
	spoolDir := t.TempDir()

	tests := []struct {
		name  string
		path  string
		limit int64
		ok    bool
	}{
		{"declared length over limit", "/doc.pdf", size - 1, false},
		{"streamed body over limit", "/chunked.pdf", size - 1, false},
		{"exactly at limit", "/chunked.pdf", size, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := &memorySink{}
			trigger := NewTrigger(NewFetcher(5*time.Second, ""), []Sink{mem},
				WithMaxBytes(tt.limit), WithSpoolDir(spoolDir))

			receipt, err := trigger.Download(context.Background(), accepted(t, srv.URL+tt.path))
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, size, receipt.Bytes)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsKind(err, errors.DownloadFailed))
			assert.Contains(t, err.Error(), "larger than")
			assert.Empty(t, mem.files)
		})
	}

	entries, err := os.ReadDir(spoolDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "spooled files must be removed")
}

func TestDownloadWithoutSinks(t *testing.T) {
	trigger := NewTrigger(NewFetcher(time.Second, ""), nil)
	_, err := trigger.Download(context.Background(), accepted(t, "https://ex.com/a.pdf"))
	assert.True(t, errors.IsKind(err, errors.DownloadFailed))
}

func TestLocalSinkNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	sink := NewLocalSink(dir)
	ctx := context.Background()

	first, err := sink.Save(ctx, "report.pdf", bytes.NewBufferString("one"))
	require.NoError(t, err)
	second, err := sink.Save(ctx, "report.pdf", bytes.NewBufferString("two"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "report.pdf"), first)
	assert.Equal(t, filepath.Join(dir, "report (1).pdf"), second)

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temp files must not be left behind")
}

func TestSafeFilename(t *testing.T) {
	tests := map[string]string{
		"My File.pdf":          "My File.pdf",
		"../../etc/passwd.pdf": "passwd.pdf",
		`..\..\evil.pdf`:       "evil.pdf",
		"":                     FallbackFilename,
		"..":                   FallbackFilename,
		"/":                    FallbackFilename,
		"  spaced.pdf ":        "spaced.pdf",
	}
	for in, want := range tests {
		assert.Equal(t, want, SafeFilename(in), in)
	}
}

func TestGCSObjectName(t *testing.T) {
	sink := &GCSSink{name: "bucket", prefix: "scans"}
	assert.Equal(t, "scans/a.pdf", sink.ObjectName("a.pdf"))
	assert.Equal(t, "scans/b.pdf", sink.ObjectName("../b.pdf"))

	bare := &GCSSink{name: "bucket"}
	assert.Equal(t, "a.pdf", bare.ObjectName("a.pdf"))
	assert.Equal(t, "gcs:bucket", bare.Name())
}

type fakePutter struct {
	mu     sync.Mutex
	inputs []*s3.PutObjectInput
	bodies []string
	err    error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, string(body))
	return &s3.PutObjectOutput{}, nil
}

func TestS3SinkSave(t *testing.T) {
	putter := &fakePutter{}
	sink := NewS3SinkWithClient(putter, "bucket", "/scans/")

	location, err := sink.Save(context.Background(), "../report.pdf", bytes.NewBufferString("data"))
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/scans/report.pdf", location)
	assert.Equal(t, "s3:bucket", sink.Name())

	require.Len(t, putter.inputs, 1)
	in := putter.inputs[0]
	assert.Equal(t, "bucket", aws.ToString(in.Bucket))
	assert.Equal(t, "scans/report.pdf", aws.ToString(in.Key))
	assert.Equal(t, PDFContentType, aws.ToString(in.ContentType))
	assert.Equal(t, "*", aws.ToString(in.IfNoneMatch))
	assert.Equal(t, "data", putter.bodies[0])
}

func TestS3SinkExistingObject(t *testing.T) {
	putter := &fakePutter{err: &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "At least one of the pre-conditions you specified did not hold"}}
	sink := NewS3SinkWithClient(putter, "bucket", "")

	location, err := sink.Save(context.Background(), "a.pdf", bytes.NewBufferString("x"))
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/a.pdf", location)
}

func TestS3SinkFailure(t *testing.T) {
	putter := &fakePutter{err: &smithy.GenericAPIError{Code: "AccessDenied", Message: "Access Denied"}}
	sink := NewS3SinkWithClient(putter, "bucket", "")

	_, err := sink.Save(context.Background(), "a.pdf", bytes.NewBufferString("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AccessDenied")
}

type failingReader struct {
	data []byte
	err  error
}

func (f *failingReader) Read(p []byte) (int, error) {
	if len(f.data) == 0 {
		return 0, f.err
	}
	n := copy(p, f.data)
	f.data = f.data[n:]
	return n, nil
}

func TestGCSSinkAbortsTruncatedUpload(t *testing.T) {
	var mu sync.Mutex
	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests = append(requests, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"bucket":"bucket","name":"a.pdf"}`)
	}))
	defer srv.Close()

	ctx := context.Background()
	sink, err := NewGCSSink(ctx, "bucket", "", option.WithEndpoint(srv.URL+"/storage/v1/"), option.WithoutAuthentication())
	require.NoError(t, err)

	_, err = sink.Save(ctx, "a.pdf", &failingReader{data: []byte("%PDF-1.4 partial"), err: fmt.Errorf("connection reset")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, requests, "a failed copy must not commit the object")
}

func TestResponseDetectContentType(t *testing.T) {
	tests := []struct {
		name     string
		declared string
		body     string
		want     string
	}{
		{"declared type wins", "application/pdf", "not really a pdf", "application/pdf"},
		{"missing type is sniffed", "", testutils.MinimalPDF, PDFContentType},
		{"octet-stream is sniffed", "application/octet-stream", testutils.MinimalPDF, PDFContentType},
		{"malformed type is sniffed", ";;", testutils.MinimalPDF, PDFContentType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &Response{Body: io.NopCloser(bytes.NewBufferString(tt.body)), ContentType: tt.declared}
			assert.Equal(t, tt.want, resp.DetectContentType())

			rest, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, tt.body, string(rest))
		})
	}
}
