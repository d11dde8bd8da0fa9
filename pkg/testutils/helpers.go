package testutils

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

// CreateTestFilesWithContent creates test files with specific content
func CreateTestFilesWithContent(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

// CreateCameraTree lays out a camera root with one directory per id. A
// non-empty label is written to the camera's label file.
func CreateCameraTree(t *testing.T, root string, cameras map[string]string) {
	t.Helper()
	for id, label := range cameras {
		dir := filepath.Join(root, id)
		require.NoError(t, os.MkdirAll(dir, 0755))
		if label != "" {
			require.NoError(t, os.WriteFile(filepath.Join(dir, "label"), []byte(label), 0644))
		}
	}
}

// MinimalPDF is a tiny single-page PDF document.
const MinimalPDF = `%PDF-1.4
1 0 obj
<< /Type /Catalog /Pages 2 0 R >>
endobj
2 0 obj
<< /Type /Pages /Kids [3 0 R] /Count 1 >>
endobj
3 0 obj
<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>
endobj
trailer
<< /Root 1 0 R >>
%%EOF
`

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)

// StripANSI removes ANSI escape sequences from a string
func StripANSI(str string) string {
	return ansiPattern.ReplaceAllString(str, "")
}
