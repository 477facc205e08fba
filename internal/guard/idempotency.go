package guard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/formgate/go-form-relay/internal/store"
)

// DefaultIdempotencyTTL is how long a processed token suppresses repeats
// unless configured otherwise.
const DefaultIdempotencyTTL = 300 * time.Second

// IdempotencyGuard suppresses repeated submissions carrying the same token.
// Tokens are stored as value-less tombstones under "idem:<token>"; presence
// of the key means "already processed".
type IdempotencyGuard struct {
	kv  store.KV
	ttl time.Duration
}

// NewIdempotencyGuard returns a guard backed by kv with the default TTL.
func NewIdempotencyGuard(kv store.KV) *IdempotencyGuard {
	return NewIdempotencyGuardTTL(kv, DefaultIdempotencyTTL)
}

// NewIdempotencyGuardTTL returns a guard with an explicit suppression window.
// Non-positive ttl falls back to the default.
func NewIdempotencyGuardTTL(kv store.KV, ttl time.Duration) *IdempotencyGuard {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyGuard{kv: kv, ttl: ttl}
}

// IsDuplicate reports whether token has been seen within the TTL window,
// recording it when it has not. An empty token never counts as a duplicate:
// deduplication is opt-in via an explicit header or a derivable fingerprint.
//
// The read-then-write sequence has a small race window under concurrent
// identical submissions; see the package comment for why that is accepted.
func (g *IdempotencyGuard) IsDuplicate(ctx context.Context, token string) (bool, error) {
	if strings.TrimSpace(token) == "" {
		return false, nil
	}

	key := store.PrefixIdem + token
	_, found, err := g.kv.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if found {
		return true, nil
	}
	if err := g.kv.SetTTL(ctx, key, "1", g.ttl); err != nil {
		return false, err
	}
	return false, nil
}

// Fingerprint derives a deterministic token from the submission fields: the
// SHA-256 hex digest of the non-empty fields JSON-encoded in sorted key
// order, so the result is stable regardless of field insertion order and of
// which optional fields were present but blank. Returns "" when every field
// value is empty.
func Fingerprint(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k, v := range fields {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kj, _ := json.Marshal(k)
		vj, _ := json.Marshal(fields[k])
		b.Write(kj)
		b.WriteByte(':')
		b.Write(vj)
	}
	b.WriteByte('}')

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
