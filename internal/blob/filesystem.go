package blob

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidKey is returned for keys that are empty or escape the root.
var ErrInvalidKey = errors.New("blob: invalid key")

// Store puts objects and returns a URL for them.
type Store interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
}

// FilesystemStore writes objects below a root directory.
type FilesystemStore struct {
	root    string
	baseURL string
}

// NewFilesystemStore constructs a store rooted at root. When baseURL is empty
// Put returns file:// URLs.
func NewFilesystemStore(root, baseURL string) (*FilesystemStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("blob: empty root")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("blob: create root: %w", err)
	}
	return &FilesystemStore{root: abs, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Put writes data under key, replacing any previous object.
func (s *FilesystemStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	target := filepath.Join(s.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".blob-*")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return s.url(clean, target), nil
}

func (s *FilesystemStore) url(key, target string) string {
	if s.baseURL == "" {
		return (&url.URL{Scheme: "file", Path: filepath.ToSlash(target)}).String()
	}
	return s.baseURL + "/" + key
}

func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrInvalidKey
	}
	clean := path.Clean("/" + key)
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" || clean == "." || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return clean, nil
}
