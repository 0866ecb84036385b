// Package cache provides byte-level caches for derived artifacts.
//
// Slice sets and mockup renders are expensive to compute and pure functions
// of their inputs, so they are cached by a hash of those inputs. Backends:
//
//   - [NullCache]: never stores anything (caching disabled).
//   - [FileCache]: JSON entry files under a directory, for the CLI.
//   - [RedisCache]: a shared Redis instance, for the API server.
//
// Keys are generated by a [Keyer] so that callers never build key strings
// by hand.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values by key.
type Cache interface {
	// Get returns the value for key. hit is false on a miss or expired entry.
	Get(ctx context.Context, key string) (data []byte, hit bool, err error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Default TTLs for cached artifacts.
const (
	SliceTTL  = 24 * time.Hour
	MockupTTL = 7 * 24 * time.Hour
	InfoTTL   = 7 * 24 * time.Hour
)
