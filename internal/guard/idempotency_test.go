package guard

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/formgate/go-form-relay/internal/store"
)

func TestIdempotencyGuard_FirstThenDuplicate(t *testing.T) {
	g := NewIdempotencyGuard(store.NewMemoryStore())
	ctx := context.Background()

	dup, err := g.IsDuplicate(ctx, "tok-1")
	if err != nil || dup {
		t.Fatalf("first sight should not be duplicate, dup=%v err=%v", dup, err)
	}
	dup, err = g.IsDuplicate(ctx, "tok-1")
	if err != nil || !dup {
		t.Fatalf("second sight should be duplicate, dup=%v err=%v", dup, err)
	}
}

func TestIdempotencyGuard_EmptyTokenOptsOut(t *testing.T) {
	g := NewIdempotencyGuard(store.NewMemoryStore())
	for i := 0; i < 3; i++ {
		if dup, _ := g.IsDuplicate(context.Background(), "  "); dup {
			t.Fatalf("empty token must never be a duplicate")
		}
	}
}

func TestIdempotencyGuard_TTLExpiry(t *testing.T) {
	mem := store.NewMemoryStore()
	now := time.Now()
	mem.SetClock(func() time.Time { return now })
	g := NewIdempotencyGuard(mem)
	ctx := context.Background()

	if dup, _ := g.IsDuplicate(ctx, "tok"); dup {
		t.Fatalf("first sight duplicate")
	}
	if dup, _ := g.IsDuplicate(ctx, "tok"); !dup {
		t.Fatalf("expected duplicate inside TTL")
	}

	now = now.Add(301 * time.Second)
	if dup, _ := g.IsDuplicate(ctx, "tok"); dup {
		t.Fatalf("token should be forgotten after the 300s TTL")
	}
}

func TestIdempotencyGuard_ConfiguredTTL(t *testing.T) {
	mem := store.NewMemoryStore()
	now := time.Now()
	mem.SetClock(func() time.Time { return now })
	g := NewIdempotencyGuardTTL(mem, 10*time.Second)
	ctx := context.Background()

	if dup, _ := g.IsDuplicate(ctx, "tok"); dup {
		t.Fatalf("first sight duplicate")
	}
	now = now.Add(11 * time.Second)
	if dup, _ := g.IsDuplicate(ctx, "tok"); dup {
		t.Fatalf("token should expire with the configured TTL")
	}
}

func TestFingerprint_StableAcrossOrder(t *testing.T) {
	a := Fingerprint(map[string]string{"name": "Ada", "email": "a@b.c", "message": "hi"})
	b := Fingerprint(map[string]string{"message": "hi", "name": "Ada", "email": "a@b.c"})
	if a == "" || a != b {
		t.Fatalf("fingerprint should be order-independent: %q vs %q", a, b)
	}
	if ok, _ := regexp.MatchString(`^[0-9a-f]{64}$`, a); !ok {
		t.Fatalf("fingerprint should be 64 hex chars, got %q", a)
	}
}

func TestFingerprint_DistinguishesContent(t *testing.T) {
	a := Fingerprint(map[string]string{"message": "hi"})
	b := Fingerprint(map[string]string{"message": "hi!"})
	if a == b {
		t.Fatalf("different content must fingerprint differently")
	}
}

func TestFingerprint_IgnoresEmptyFields(t *testing.T) {
	a := Fingerprint(map[string]string{"message": "hi"})
	b := Fingerprint(map[string]string{"message": "hi", "email": "", "handle": ""})
	if a == "" || a != b {
		t.Fatalf("blank optional fields must not change the digest: %q vs %q", a, b)
	}
}

func TestFingerprint_AllEmptyFields(t *testing.T) {
	if got := Fingerprint(map[string]string{"name": "", "message": ""}); got != "" {
		t.Fatalf("all-empty field set should yield empty token, got %q", got)
	}
	if got := Fingerprint(nil); got != "" {
		t.Fatalf("nil field set should yield empty token, got %q", got)
	}
}
