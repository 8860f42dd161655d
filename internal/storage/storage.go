// Package storage keeps the original photo bytes. Only a local-disk
// implementation exists; the locator scheme leaves room for object
// storage later.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore saves and loads original photo bytes by photo id.
type BlobStore interface {
	// Save writes the bytes and returns a locator usable as the photo's
	// storage URL.
	Save(ctx context.Context, photoID string, data []byte) (string, error)
	// Load reads the bytes back for a locator returned by Save.
	Load(ctx context.Context, locator string) ([]byte, error)
}

// LocalStore writes photos to a directory and serves them under the
// /uploads/ URL prefix.
type LocalStore struct {
	dir string
}

var _ BlobStore = (*LocalStore)(nil)

// NewLocalStore creates the upload directory if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Dir returns the directory photos are written to.
func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) Save(_ context.Context, photoID string, data []byte) (string, error) {
	if photoID == "" {
		return "", fmt.Errorf("cannot save photo with empty id")
	}

	filename := photoID + ".jpg"
	path := filepath.Join(s.dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write photo %s: %w", photoID, err)
	}
	return "/uploads/" + filename, nil
}

func (s *LocalStore) Load(_ context.Context, locator string) ([]byte, error) {
	filename := filepath.Base(strings.TrimPrefix(locator, "/uploads/"))
	if filename == "." || filename == "/" || filename == "" {
		return nil, fmt.Errorf("invalid storage locator %q", locator)
	}

	data, err := os.ReadFile(filepath.Join(s.dir, filename))
	if err != nil {
		return nil, fmt.Errorf("failed to read photo %s: %w", locator, err)
	}
	return data, nil
}
