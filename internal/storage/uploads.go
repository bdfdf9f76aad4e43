// Package storage holds raw uploaded files on the local filesystem.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type Uploads struct {
	dir string
}

func NewUploads(dir string) (*Uploads, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir failed: %w", err)
	}
	return &Uploads{dir: dir}, nil
}

// Save writes the upload to a fresh file and returns its path. The stored
// name carries the owner ID and a random component, so two uploads never
// share a file even when their display filenames match.
func (u *Uploads) Save(ownerID uint, filename string, r io.Reader) (string, error) {
	stored := fmt.Sprintf("%d_%s_%s", ownerID, uuid.NewString(), SanitizeFilename(filename))
	path := filepath.Join(u.dir, stored)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload file failed: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write upload file failed: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close upload file failed: %w", err)
	}
	return path, nil
}

// Open streams a previously saved file.
func (u *Uploads) Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open upload file failed: %w", err)
	}
	return f, nil
}

// Remove deletes a previously saved file.
func (u *Uploads) Remove(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove upload file failed: %w", err)
	}
	return nil
}

// SanitizeFilename strips any path components and reduces the name to a
// conservative character set.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		out = "upload"
	}
	return out
}
