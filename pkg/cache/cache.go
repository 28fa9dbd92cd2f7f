// Package cache provides pluggable caching for scene builds.
//
// Topology construction, placement search, and artifact generation are
// deterministic, so their outputs cache well: the same shape descriptor
// always yields the same mesh, and the same (mesh, camera, spec) always
// yields the same placements. Backends:
//   - FileCache: per-user disk cache for CLI usage
//   - RedisCache: shared cache for the HTTP service
//   - NullCache: caching disabled
//
// Keys are generated by a Keyer so every caller hashes inputs the same
// way; ScopedKeyer adds a namespace prefix for multi-tenant deployments.
package cache

import (
	"context"
	"time"
)

// Cache is the backend interface. Implementations must be safe for
// concurrent use.
type Cache interface {
	// Get retrieves a value. The second return is false on a miss;
	// misses are not errors.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of zero means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
