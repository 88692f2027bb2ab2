package upload

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage implements Storage for the local filesystem. All operations
// are confined to baseDir to prevent path traversal.
type LocalStorage struct {
	baseDir string
	baseURL string
}

// NewLocalStorage creates a local filesystem storage rooted at baseDir,
// creating the directory if needed. baseURL is the public prefix returned by
// URL (e.g. "/files/").
func NewLocalStorage(baseDir, baseURL string) (*LocalStorage, error) {
	if baseDir == "" {
		return nil, ErrInvalidConfig
	}

	absBaseDir, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to resolve base directory: %v", ErrInvalidConfig, err)
	}

	if err := os.MkdirAll(absBaseDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToCreateDirectory, err)
	}

	if baseURL != "" && !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	return &LocalStorage{baseDir: absBaseDir, baseURL: baseURL}, nil
}

// Save stores a file on the local filesystem. Partial files are removed when
// the copy fails.
func (s *LocalStorage) Save(ctx context.Context, fh *multipart.FileHeader, path string) (*File, error) {
	if fh == nil {
		return nil, ErrNilFileHeader
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	absPath, relPath, err := s.resolvePath(path)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToCreateDirectory, err)
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToOpenFile, err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.OpenFile(absPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToCreateFile, err)
	}

	written, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(absPath)
		return nil, fmt.Errorf("%w: %v", ErrFailedToWriteFile, err)
	}

	mimeType, _ := GetMIMEType(fh)

	return &File{
		Filename:     filepath.Base(absPath),
		Size:         written,
		MIMEType:     mimeType,
		Extension:    filepath.Ext(absPath),
		RelativePath: relPath,
	}, nil
}

// Delete removes a single file.
func (s *LocalStorage) Delete(ctx context.Context, path string) error {
	absPath, _, err := s.resolvePath(path)
	if err != nil {
		return err
	}

	if err := os.Remove(absPath); err != nil {
		if os.IsNotExist(err) {
			return ErrFileNotFound
		}
		return fmt.Errorf("%w: %v", ErrFailedToDeleteFile, err)
	}
	return nil
}

// Exists checks if a file exists.
func (s *LocalStorage) Exists(ctx context.Context, path string) bool {
	absPath, _, err := s.resolvePath(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(absPath)
	return err == nil
}

// URL returns the public URL for a file.
func (s *LocalStorage) URL(path string) string {
	return s.baseURL + strings.TrimPrefix(filepath.ToSlash(path), "/")
}

// resolvePath joins path with the base directory and rejects escapes.
func (s *LocalStorage) resolvePath(path string) (abs, rel string, err error) {
	rel = strings.TrimPrefix(filepath.ToSlash(path), "/")
	if rel == "" || rel != filepath.ToSlash(filepath.Clean(rel)) {
		return "", "", ErrInvalidPath
	}

	abs = filepath.Join(s.baseDir, filepath.FromSlash(rel))
	if !strings.HasPrefix(abs, s.baseDir+string(filepath.Separator)) {
		return "", "", ErrInvalidPath
	}
	return abs, rel, nil
}
