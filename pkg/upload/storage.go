// Package upload provides multipart file storage with local filesystem and
// S3 backends, plus content-based validation helpers.
package upload

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

// File represents stored file metadata.
type File struct {
	Filename     string
	Size         int64
	MIMEType     string
	Extension    string
	RelativePath string
}

// Storage interface for different backends.
type Storage interface {
	// Save stores a file under the given path and returns metadata.
	Save(ctx context.Context, fh *multipart.FileHeader, path string) (*File, error)
	// Delete removes a single file.
	Delete(ctx context.Context, path string) error
	// Exists checks if a file exists.
	Exists(ctx context.Context, path string) bool
	// URL returns the public URL for a file.
	URL(path string) string
}

// IsPDF checks if the file is a PDF. Content detection is preferred over the
// extension so a renamed file cannot spoof its way through.
func IsPDF(fh *multipart.FileHeader) bool {
	if fh == nil {
		return false
	}

	mimeType, err := GetMIMEType(fh)
	if err == nil {
		return mimeType == "application/pdf"
	}

	return strings.ToLower(filepath.Ext(fh.Filename)) == ".pdf"
}

// GetMIMEType detects the MIME type by reading the first 512 bytes of the
// file content, then resets the read position.
func GetMIMEType(fh *multipart.FileHeader) (string, error) {
	if fh == nil {
		return "", ErrNilFileHeader
	}

	file, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFailedToOpenFile, err)
	}
	defer func() { _ = file.Close() }()

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("%w: %v", ErrFailedToReadFile, err)
	}

	if seeker, ok := file.(io.Seeker); ok {
		_, _ = seeker.Seek(0, io.SeekStart)
	}

	return http.DetectContentType(buffer[:n]), nil
}

// ValidateSize checks if the file size is within the allowed limit.
func ValidateSize(fh *multipart.FileHeader, maxBytes int64) error {
	if fh == nil {
		return ErrNilFileHeader
	}
	if fh.Size > maxBytes {
		return fmt.Errorf("file size %d bytes exceeds %d bytes limit: %w", fh.Size, maxBytes, ErrFileTooLarge)
	}
	return nil
}

// SanitizeFilename strips path components and NUL bytes from a filename to
// prevent path traversal.
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "\\", "/")
	filename = filepath.Base(filename)
	filename = strings.ReplaceAll(filename, "\x00", "")

	if filename == "." || filename == ".." || filename == "" || filename == "/" {
		filename = "unnamed"
	}

	return filename
}
