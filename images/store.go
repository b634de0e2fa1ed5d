// Package images persists generated post images and hands back public URLs.
package images

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store saves raw image bytes under a filename and returns a public URL.
type Store interface {
	Save(ctx context.Context, filename string, data []byte) (string, error)
}

// DiskStore writes images to a local directory served as static files by the
// API server.
type DiskStore struct {
	Dir           string
	PublicBaseURL string
}

func NewDiskStore(dir, publicBaseURL string) *DiskStore {
	return &DiskStore{Dir: dir, PublicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

func (s *DiskStore) Save(ctx context.Context, filename string, data []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create image dir: %w", err)
	}

	name := filepath.Base(filename)
	if err := os.WriteFile(filepath.Join(s.Dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}

	return fmt.Sprintf("%s/%s", s.PublicBaseURL, name), nil
}
