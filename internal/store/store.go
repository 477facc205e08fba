// Package store provides the key-value persistence used by the relay for all
// cross-request state: rate-limit windows, idempotency markers, the dynamic
// allowed-origin document, and the chat migration cache.
//
// The KV interface is deliberately narrow (get, set-with-TTL, delete). The
// relay performs only best-effort read-then-write sequences over it; there are
// no transactional primitives, and callers are written to tolerate lost
// updates under concurrency (see guard package).
package store

import (
	"context"
	"time"
)

// Key prefixes partitioning the logical stores inside one keyspace.
const (
	// PrefixRate keys per-client sliding-window timestamp lists.
	PrefixRate = "rate:"
	// PrefixIdem keys idempotency tombstones.
	PrefixIdem = "idem:"
	// PrefixMigrate keys chat-ID migration mappings.
	PrefixMigrate = "migrate:"
	// KeyOrigins holds the dynamically managed allowed-origin pattern document.
	KeyOrigins = "origins"
)

// KV is the minimal contract the relay needs from a key-value store.
//
// Get returns (value, true, nil) when the key exists and has not expired.
// SetTTL writes value under key; ttl <= 0 means no expiry.
// Implementations must be safe for concurrent use.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetTTL(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
