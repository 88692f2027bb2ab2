package upload_test

import (
	"bytes"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planfence/planfence/pkg/upload"
)

// pdfHeader is the magic number an uploaded PDF starts with.
var pdfHeader = []byte("%PDF-1.7\n")

func newFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	form, err := multipart.NewReader(&buf, mw.Boundary()).ReadForm(int64(buf.Len()) + 1024)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	headers := form.File["file"]
	require.Len(t, headers, 1)
	return headers[0]
}

func TestIsPDF(t *testing.T) {
	t.Parallel()

	t.Run("pdf content", func(t *testing.T) {
		t.Parallel()

		fh := newFileHeader(t, "report.pdf", append(pdfHeader, []byte("content")...))
		assert.True(t, upload.IsPDF(fh))
	})

	t.Run("non-pdf content with pdf extension", func(t *testing.T) {
		t.Parallel()

		fh := newFileHeader(t, "report.pdf", []byte("plain text pretending"))
		assert.False(t, upload.IsPDF(fh))
	})

	t.Run("non-pdf file", func(t *testing.T) {
		t.Parallel()

		fh := newFileHeader(t, "notes.txt", []byte("plain text"))
		assert.False(t, upload.IsPDF(fh))
	})

	t.Run("nil header", func(t *testing.T) {
		t.Parallel()

		assert.False(t, upload.IsPDF(nil))
	})
}

func TestValidateSize(t *testing.T) {
	t.Parallel()

	t.Run("within limit", func(t *testing.T) {
		t.Parallel()

		fh := newFileHeader(t, "small.pdf", append(pdfHeader, bytes.Repeat([]byte("a"), 100)...))
		assert.NoError(t, upload.ValidateSize(fh, 1024))
	})

	t.Run("over limit", func(t *testing.T) {
		t.Parallel()

		fh := newFileHeader(t, "big.pdf", append(pdfHeader, bytes.Repeat([]byte("a"), 2048)...))
		err := upload.ValidateSize(fh, 1024)
		assert.ErrorIs(t, err, upload.ErrFileTooLarge)
	})

	t.Run("nil header", func(t *testing.T) {
		t.Parallel()

		assert.ErrorIs(t, upload.ValidateSize(nil, 1024), upload.ErrNilFileHeader)
	})
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain name", "report.pdf", "report.pdf"},
		{"path stripped", "../../etc/passwd", "passwd"},
		{"windows path stripped", `C:\docs\report.pdf`, "report.pdf"},
		{"nul bytes removed", "re\x00port.pdf", "report.pdf"},
		{"empty name", "", "unnamed"},
		{"dot dot", "..", "unnamed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, upload.SanitizeFilename(tt.input))
		})
	}
}
