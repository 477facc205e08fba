// Package guard implements the abuse-mitigation checks that gate admission:
// a sliding-window rate limiter and an idempotency (duplicate-suppression)
// guard. Both keep their state in the shared TTL store rather than in
// process memory, so any number of relay instances enforce one view.
//
// Consistency note: the store offers no transactional primitives, so both
// guards use plain read-then-write sequences. Two requests racing on the same
// key can lose an update, transiently under-counting a window or admitting a
// duplicate. That approximation is accepted: these are best-effort abuse
// reducers, not correctness barriers, and the alternative is a distributed
// lock whose cost dwarfs an occasional missed edge case.
package guard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/formgate/go-form-relay/internal/store"
)

// rateWindow is the trailing interval a client's requests are counted over,
// and also the expiry of the stored entry.
const rateWindow = 60 * time.Second

// RateLimiter counts requests per client identifier within a trailing
// 60-second window, persisting the window in the TTL store under
// "rate:<identifier>".
type RateLimiter struct {
	kv store.KV

	// now is a seam for tests that walk the window forward.
	now func() time.Time
}

// NewRateLimiter returns a limiter backed by kv.
func NewRateLimiter(kv store.KV) *RateLimiter {
	return &RateLimiter{kv: kv, now: time.Now}
}

// CheckAndRecord reports whether identifier has exhausted limitPerMinute.
//
// Timestamps older than the window are pruned before counting. When the
// pruned count has reached the limit, the call returns limited=true and does
// NOT record the attempt: a blocked client retrying does not push its own
// window forward, so it cannot lock itself out indefinitely through rejected
// traffic alone. Otherwise the current timestamp is appended and the entry is
// rewritten with a fresh 60 s expiry.
//
// Store read failures admit the request (availability over strictness); the
// error is returned so the caller can log it.
func (rl *RateLimiter) CheckAndRecord(ctx context.Context, identifier string, limitPerMinute int) (bool, error) {
	if limitPerMinute <= 0 {
		return false, nil
	}

	key := store.PrefixRate + identifier
	now := rl.now().UnixMilli()
	cutoff := now - rateWindow.Milliseconds()

	var stamps []int64
	raw, found, err := rl.kv.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if found {
		// A corrupt entry is treated as empty rather than blocking traffic.
		_ = json.Unmarshal([]byte(raw), &stamps)
	}

	live := stamps[:0]
	for _, ts := range stamps {
		if ts > cutoff {
			live = append(live, ts)
		}
	}

	if len(live) >= limitPerMinute {
		return true, nil
	}

	live = append(live, now)
	buf, err := json.Marshal(live)
	if err != nil {
		return false, err
	}
	if err := rl.kv.SetTTL(ctx, key, string(buf), rateWindow); err != nil {
		return false, err
	}
	return false, nil
}
