package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"qrpdf/internal/config"
	"qrpdf/internal/errors"
	"qrpdf/pkg/testutils"

	"github.com/dustin/go-humanize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with a missing config file, so defaults
// plus env apply, and the camera and download directories given.
func execute(t *testing.T, cameraRoot, downloads string, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	if cameraRoot == "" {
		cameraRoot = filepath.Join(dir, "cameras")
	}
	if downloads == "" {
		downloads = filepath.Join(dir, "downloads")
	}
	t.Setenv(config.EnvCameraRoot, cameraRoot)
	t.Setenv(config.EnvDownloadDir, downloads)
	t.Setenv(config.EnvGCSBucket, "")
	t.Setenv(config.EnvS3Bucket, "")

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--config", filepath.Join(dir, "missing.yaml")}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestCheckCommand(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		kind     errors.ErrorKind
		contains []string
	}{
		{
			name:     "accepted",
			payload:  "https://example.com/files/My%20File.pdf",
			contains: []string{"Valid:    true", "PDF:      true", "Name:     My File.pdf", "Type:     PDF Document", "Status:   Ready to download"},
		},
		{
			name:     "query suffix",
			payload:  "https://example.com/doc.pdf?v=2",
			kind:     errors.NotAPDF,
			contains: []string{"Valid:    true", "PDF:      false", "Status:   Scanned file is not a PDF"},
		},
		{
			name:     "not a url",
			payload:  "hello world",
			kind:     errors.InvalidScannedURL,
			contains: []string{"Valid:    false", "Status:   Invalid URL scanned"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "", "", "check", tt.payload)
			if tt.kind == errors.Unknown {
				require.NoError(t, err)
			} else {
				assert.True(t, errors.IsKind(err, tt.kind), "got %v", err)
			}
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
		})
	}
}

func TestCamerasCommand(t *testing.T) {
	t.Run("lists cameras", func(t *testing.T) {
		root := t.TempDir()
		testutils.CreateCameraTree(t, root, map[string]string{
			"front": "Front Camera",
			"back":  "",
		})

		out, err := execute(t, root, "", "cameras")
		require.NoError(t, err)
		assert.Equal(t, "0  back\n1  Front Camera (front)\n", out)
	})

	t.Run("no cameras", func(t *testing.T) {
		_, err := execute(t, t.TempDir(), "", "cameras")
		assert.True(t, errors.IsKind(err, errors.NoCameraFound))
	})
}

func TestFetchCommand(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/manual.pdf" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		io.WriteString(w, testutils.MinimalPDF)
	}))
	defer origin.Close()

	downloads := t.TempDir()

	t.Run("saves the file", func(t *testing.T) {
		out, err := execute(t, "", downloads, "fetch", origin.URL+"/files/manual.pdf")
		require.NoError(t, err)
		assert.Contains(t, out, "Downloading manual.pdf")
		assert.Contains(t, out, "Saved "+filepath.Join(downloads, "manual.pdf"))
		assert.Contains(t, out, humanize.Bytes(uint64(len(testutils.MinimalPDF))))

		data, err := os.ReadFile(filepath.Join(downloads, "manual.pdf"))
		require.NoError(t, err)
		assert.Equal(t, testutils.MinimalPDF, string(data))
	})

	t.Run("rejects before fetching", func(t *testing.T) {
		_, err := execute(t, "", downloads, "fetch", origin.URL+"/files/page.html")
		assert.True(t, errors.IsKind(err, errors.NotAPDF))
	})

	t.Run("upstream failure", func(t *testing.T) {
		_, err := execute(t, "", downloads, "fetch", origin.URL+"/missing.pdf")
		assert.True(t, errors.IsKind(err, errors.DownloadFailed))
	})
}

func TestInvalidConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("theme:\n  name: neon\n"), 0644))
	t.Setenv(config.EnvCameraRoot, "")

	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config", path, "check", "https://example.com/a.pdf"})
	err := root.Execute()
	require.Error(t, err)
	assert.True(t, errors.IsInvalidConfig(err))
}
