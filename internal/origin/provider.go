package origin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/formgate/go-form-relay/internal/store"
)

// Provider assembles the allowed-origin pattern list: the union of the
// dynamically managed document in the store and the statically configured
// set. The document is read fresh on every call so administrative updates
// take effect on the very next admission.
type Provider struct {
	KV     store.KV
	Static []string
}

// Patterns returns the merged pattern list. Store read or parse failures are
// swallowed and the static set returned alone: availability of the relay
// matters more than freshness of the dynamic list.
func (p *Provider) Patterns(ctx context.Context) []string {
	dynamic, err := p.Dynamic(ctx)
	if err != nil {
		dynamic = nil
	}
	merged := make([]string, 0, len(dynamic)+len(p.Static))
	merged = append(merged, dynamic...)
	merged = append(merged, p.Static...)
	return merged
}

// Dynamic returns only the dynamically managed patterns.
func (p *Provider) Dynamic(ctx context.Context) ([]string, error) {
	if p.KV == nil {
		return nil, nil
	}
	raw, found, err := p.KV.Get(ctx, store.KeyOrigins)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	var patterns []string
	if err := json.Unmarshal([]byte(raw), &patterns); err != nil {
		return nil, fmt.Errorf("origin document malformed: %w", err)
	}
	return patterns, nil
}

// Add appends pattern to the dynamic document, ignoring duplicates.
func (p *Provider) Add(ctx context.Context, pattern string) error {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if pattern == "" {
		return fmt.Errorf("pattern must not be empty")
	}
	patterns, err := p.Dynamic(ctx)
	if err != nil {
		return err
	}
	for _, existing := range patterns {
		if existing == pattern {
			return nil
		}
	}
	return p.save(ctx, append(patterns, pattern))
}

// Remove deletes pattern from the dynamic document. Removing an absent
// pattern is not an error.
func (p *Provider) Remove(ctx context.Context, pattern string) error {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	patterns, err := p.Dynamic(ctx)
	if err != nil {
		return err
	}
	kept := patterns[:0]
	for _, existing := range patterns {
		if existing != pattern {
			kept = append(kept, existing)
		}
	}
	return p.save(ctx, kept)
}

func (p *Provider) save(ctx context.Context, patterns []string) error {
	if patterns == nil {
		patterns = []string{}
	}
	buf, err := json.Marshal(patterns)
	if err != nil {
		return err
	}
	return p.KV.SetTTL(ctx, store.KeyOrigins, string(buf), 0)
}
