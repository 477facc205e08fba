// Package routing resolves which bot credential and chat a submission is
// delivered to, based on the requesting domain, and absorbs Telegram
// group-to-supergroup migrations through a persistent mapping in the store.
package routing

import (
	"context"
	"time"

	"github.com/formgate/go-form-relay/internal/domain"
	"github.com/formgate/go-form-relay/internal/store"
)

// migrationTTL keeps migration mappings for five years. A migrated group ID
// never reverts, so the mapping is authoritative for as long as the routing
// configuration might still reference the old ID.
const migrationTTL = 5 * 365 * 24 * time.Hour

// Router maps hostnames to delivery targets. Rules are static per process;
// the migration cache is consulted on every resolution so configuration can
// keep referencing an original group ID after the platform migrates it.
type Router struct {
	rules    map[string]domain.RoutingTarget
	defaults domain.RoutingTarget
	kv       store.KV
}

// NewRouter builds a Router from the per-domain rule table and process-wide
// defaults, with kv backing the migration cache.
func NewRouter(rules map[string]domain.RoutingTarget, defaults domain.RoutingTarget, kv store.KV) *Router {
	if rules == nil {
		rules = map[string]domain.RoutingTarget{}
	}
	return &Router{rules: rules, defaults: defaults, kv: kv}
}

// Resolve returns the target for hostname, falling back to the process-wide
// defaults when no domain rule exists. A rule may override just the chat (an
// empty BotToken inherits the default credential). The migration cache
// supersedes the configured chat ID; cache read failures are ignored so a
// degraded store never blocks delivery.
func (r *Router) Resolve(ctx context.Context, hostname string) domain.RoutingTarget {
	target := r.defaults
	if rule, ok := r.rules[hostname]; ok {
		if rule.BotToken != "" {
			target.BotToken = rule.BotToken
		}
		if rule.ChatID != "" {
			target.ChatID = rule.ChatID
		}
	}

	if target.ChatID != "" && r.kv != nil {
		if migrated, found, err := r.kv.Get(ctx, store.PrefixMigrate+target.ChatID); err == nil && found && migrated != "" {
			target.ChatID = migrated
		}
	}
	return target
}

// RecordMigration persists newID as the authoritative replacement for oldID.
// Subsequent Resolve calls for any rule configured with oldID return newID.
func (r *Router) RecordMigration(ctx context.Context, oldID, newID string) error {
	if oldID == "" || newID == "" || oldID == newID {
		return nil
	}
	return r.kv.SetTTL(ctx, store.PrefixMigrate+oldID, newID, migrationTTL)
}
