// Package storage provides blob stores for job artifacts.
//
// Chunks, processed chunks, merged documents and job manifests are persisted
// by path so every pipeline step is idempotent and resumable: re-running a
// step overwrites the same object. Three backends are provided:
//
//   - [FileStore]: a directory on local disk, for the CLI and tests.
//   - [MemoryStore]: an in-process map with fault injection, for tests.
//   - [MongoStore]: MongoDB GridFS, for deployments.
//
// Wrap any backend with [NewRetrying] to get bounded exponential backoff on
// transient failures.
//
// # Errors
//
// Missing objects return an error with code NOT_FOUND. Backend failures
// return STORAGE_ERROR; those that are worth retrying are additionally
// marked with [retry.Retryable].
package storage

import (
	"context"

	"github.com/matzehuels/edgeprint/pkg/errors"
)

// Store persists blobs by slash-separated relative path.
type Store interface {
	// Download returns the blob at path.
	Download(ctx context.Context, path string) ([]byte, error)

	// Upload writes data to path, replacing any existing blob.
	Upload(ctx context.Context, path string, data []byte) error

	// List returns every path with the given prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)

	// Remove deletes every blob whose path has the given prefix.
	// Removing a prefix with no blobs is not an error.
	Remove(ctx context.Context, prefix string) error

	// Close releases backend resources.
	Close() error
}

func notFound(path string) error {
	return errors.New(errors.ErrCodeNotFound, "object not found: %s", path)
}

// IsNotFound reports whether err means the object does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, errors.ErrCodeNotFound)
}
