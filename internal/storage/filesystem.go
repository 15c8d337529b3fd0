// Package storage persists generated artifacts under a run's output directory.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/provider"
)

// FileStore writes artifacts below a root directory.
type FileStore struct {
	root   string
	client *http.Client
}

// NewFileStore creates root if needed and returns a store rooted there.
func NewFileStore(root string, client *http.Client) (*FileStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("storage: root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure root: %w", err)
	}
	return &FileStore{root: root, client: client}, nil
}

// Path returns the absolute location of key without touching the disk.
func (s *FileStore) Path(key string) (string, error) {
	clean, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Write stores data under key and returns the file path.
func (s *FileStore) Write(ctx context.Context, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full, err := s.Path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("storage: ensure directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	return full, nil
}

// Save copies a local file or downloads a URL into the store under key.
// A ref that already lives at the destination is returned unchanged.
func (s *FileStore) Save(ctx context.Context, ref, key string) (string, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		data, err := provider.Fetch(ctx, s.client, ref)
		if err != nil {
			return "", err
		}
		return s.Write(ctx, key, data)
	}

	full, err := s.Path(key)
	if err != nil {
		return "", err
	}
	if same, _ := samePath(ref, full); same {
		return full, nil
	}
	src, err := os.Open(ref)
	if err != nil {
		return "", fmt.Errorf("storage: open %s: %w", ref, err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("storage: ensure directory: %w", err)
	}
	dst, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("storage: create %s: %w", full, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("storage: copy %s: %w", ref, err)
	}
	if err := dst.Close(); err != nil {
		return "", err
	}
	return full, nil
}

func samePath(a, b string) (bool, error) {
	aa, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	bb, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return aa == bb, nil
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.ToSlash(filepath.Clean(key))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}
