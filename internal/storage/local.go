package storage

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/vaultstream/vaultstream/internal/errors"
)

// localBackend stores objects on the local filesystem under root, serving
// them back through PublicBaseURL (a path the process's HTTP server mounts
// as a static file route) — the development/single-node backend, matching
// STORAGE_BACKEND=local (§6).
type localBackend struct {
	root          string
	publicBaseURL string
}

// NewLocal builds the local filesystem ObjectStorage backend.
func NewLocal(root, publicBaseURL string) *localBackend {
	return &localBackend{root: root, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

func (b *localBackend) Put(ctx context.Context, data io.Reader, size int64, contentType, ext string) (string, string, error) {
	buf, err := readAllForDigest(data)
	if err != nil {
		return "", "", apperrors.Wrap(apperrors.KindTransient, "reading media for storage", err)
	}
	key := digestKey(buf, ext)
	path := filepath.Join(b.root, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", "", apperrors.Wrap(apperrors.KindTransient, "creating storage directory", err)
	}
	if _, err := os.Stat(path); err == nil {
		return key, b.PublicURL(key), nil
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return "", "", apperrors.Wrap(apperrors.KindTransient, "writing media to storage", err)
	}
	return key, b.PublicURL(key), nil
}

func (b *localBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(filepath.Join(b.root, filepath.FromSlash(key)))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, apperrors.Wrap(apperrors.KindTransient, "checking media existence", err)
}

func (b *localBackend) PublicURL(key string) string {
	return b.publicBaseURL + "/" + key
}

// Handler returns an http.Handler suitable for mounting at PublicBaseURL in
// cmd/server, serving stored media directly from disk.
func (b *localBackend) Handler() http.Handler {
	return http.StripPrefix(b.publicBaseURL, http.FileServer(http.Dir(b.root)))
}
