package storage

import (
	"context"
	"io"
	"mime"
	"path"
	"strings"
)

// ObjectStore is the object storage surface the backup command uses.
type ObjectStore interface {
	// Put uploads an object under key.
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Get downloads the object stored under key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes the object stored under key.
	Delete(ctx context.Context, key string) error

	// URL returns the public URL of an object, or "" when the store has
	// no public prefix configured.
	URL(key string) string
}

// Provider identifies the flavor of S3-compatible storage behind an
// endpoint. R2 cannot create buckets over the API, which changes how
// EnsureBucket behaves.
type Provider string

const (
	ProviderS3         Provider = "s3"
	ProviderR2         Provider = "r2"
	ProviderCompatible Provider = "s3compatible"
)

// DetectProvider guesses the provider from the endpoint host.
func DetectProvider(endpoint string) Provider {
	endpoint = strings.ToLower(endpoint)
	switch {
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return ProviderR2
	case strings.Contains(endpoint, "amazonaws.com"):
		return ProviderS3
	default:
		return ProviderCompatible
	}
}

// ContentTypeForPath maps a file path to a MIME type for upload, falling
// back to application/octet-stream.
func ContentTypeForPath(p string) string {
	if ct := mime.TypeByExtension(path.Ext(p)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
