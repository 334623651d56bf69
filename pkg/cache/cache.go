// Package cache provides byte-level caching for composited sprite exports.
//
// # Backends
//
//   - [NullCache]: caching disabled
//   - [FileCache]: per-user directory cache for the CLI (~/.cache/spritestack)
//   - [MemoryCache]: in-process TTL cache for the HTTP server
//   - [RedisCache]: shared cache for several server instances
//
// Keys are produced by a [Keyer]. The default keyer hashes the ordered list of
// layer content hashes, so two sessions that stack the same images in the same
// order share one entry regardless of file names.
package cache

import (
	"context"
	"time"
)

// Default time-to-live values per entry type.
const (
	// TTLArtifact is how long an encoded export stays cached.
	TTLArtifact = 24 * time.Hour

	// TTLDecode is how long a decoded layer stays in the in-process memo.
	TTLDecode = 30 * time.Minute
)

// Cache stores opaque byte values under string keys.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the value and true on a hit. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data for ttl. A ttl of zero means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
