// Package blob stores payment-proof uploads on local disk. The core
// treats proofs as opaque bytes attached at checkout time; only the
// stored path is recorded on the registration row.
package blob

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store writes uploads under a base directory with random names so
// user-supplied filenames never touch the filesystem.
type Store struct {
	dir string
}

// New creates the base directory if needed and returns a Store.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Save streams one upload to disk and returns the stored path. The
// original filename contributes only its extension.
func (s *Store) Save(src io.Reader, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".pdf":
	default:
		ext = ".bin"
	}
	name := uuid.NewString() + ext
	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create proof file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write proof file: %w", err)
	}
	return path, nil
}

// Open returns a reader for a stored proof.
func (s *Store) Open(path string) (io.ReadCloser, error) {
	// Refuse paths outside the store directory.
	clean := filepath.Clean(path)
	if !strings.HasPrefix(clean, filepath.Clean(s.dir)+string(os.PathSeparator)) {
		return nil, os.ErrNotExist
	}
	return os.Open(clean)
}
