// Package cache stores routed tile results keyed by a hash of every input
// that influences them.
//
// Three backends implement [Cache]:
//   - [FileCache]: one JSON file per entry, for CLI usage
//   - [RedisCache]: a shared Redis instance, for several routing hosts
//   - [NullCache]: stores nothing, for tests and --no-cache
//
// Keys are produced by a [Keyer] so that multi-tenant deployments can
// isolate namespaces with [ScopedKeyer].
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	// Get returns the data stored under key. A missing or expired entry is
	// a miss, not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend.
	Close() error
}

// =============================================================================
// Default Values
// =============================================================================

const (
	// TTLTileResult is how long a routed tile stays cached.
	TTLTileResult = 7 * 24 * time.Hour

	// TTLCheck is how long a rule-check report stays cached.
	TTLCheck = 24 * time.Hour
)

// Key types reported to the cache hooks.
const (
	KeyTypeTile  = "tile"
	KeyTypeCheck = "check"
)

// Clearer is implemented by caches that can drop every entry at once.
type Clearer interface {
	Clear(ctx context.Context) (int, error)
}
