package cache

import "context"

// EvictCallback is called with the key of an entry dropped by the backend. The memory
// backend reports expired entries too; Redis only reports entries dropped for size.
type EvictCallback func(key string)

// Cache stores opaque byte values under string keys with a size bound and an expiry.
// Implementations never fail loudly: a backend error is logged and reported as a miss,
// so that a broken cache only costs a browser session.
type Cache interface {
	// Get returns the value stored under key and refreshes its recency. The expiry
	// still counts from the last Set.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte)

	// Len returns the number of live entries.
	Len() int

	// Close releases connections held by the backend.
	Close() error
}
