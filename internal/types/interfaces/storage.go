package interfaces

import (
	"context"
	"io"
)

// ObjectStorage is the content-addressed blob store contract backing C1.
// Implementations: internal/storage's local filesystem and minio backends.
type ObjectStorage interface {
	// Put stores data under a content-addressed key derived from its SHA-256
	// digest, sharded two levels deep (e.g. "ab/cd/abcd...ext"). It returns
	// the key and a public URL the renderer can embed directly.
	Put(ctx context.Context, data io.Reader, size int64, contentType, ext string) (key string, publicURL string, err error)

	// Exists reports whether a key is already stored, so callers can skip
	// re-uploading identical bytes.
	Exists(ctx context.Context, key string) (bool, error)

	// PublicURL returns the externally reachable URL for an existing key.
	PublicURL(key string) string
}

// ImageTranscoder converts a source image into WebP at the configured
// quality (§4.1, §4.5's media-processing step). Wired behind an interface
// because no pack library performs WebP encoding; the default implementation
// shells out to cwebp (documented in DESIGN.md).
type ImageTranscoder interface {
	ToWebP(ctx context.Context, src io.Reader, quality int) (io.ReadCloser, error)
}
