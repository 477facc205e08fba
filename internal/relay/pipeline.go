package relay

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/formgate/go-form-relay/internal/domain"
	"github.com/formgate/go-form-relay/internal/guard"
	"github.com/formgate/go-form-relay/internal/origin"
	"github.com/formgate/go-form-relay/internal/pool"
	"github.com/formgate/go-form-relay/internal/routing"
	"github.com/formgate/go-form-relay/internal/sanitize"
)

// CaptchaVerifier verifies a challenge token. Implemented by captcha.Verifier.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, secret string) bool
}

// Deliverer relays a rendered message to a routing target. Implemented by
// telegram.DeliveryService.
type Deliverer interface {
	Deliver(ctx context.Context, target domain.RoutingTarget, text string) (domain.DeliveryResult, error)
}

// Limits bounds the sanitized field lengths.
type Limits struct {
	NameLen    int
	EmailLen   int
	HandleLen  int
	MessageLen int
}

// DefaultLimits are the field bounds applied when none are configured.
var DefaultLimits = Limits{NameLen: 200, EmailLen: 200, HandleLen: 100, MessageLen: 4000}

// Request is one admission attempt: the transport-level facts the pipeline
// needs alongside the parsed submission.
type Request struct {
	// Origin is the raw Origin header value.
	Origin string
	// ClientIP identifies the caller for rate limiting.
	ClientIP string
	// IdempotencyKey is the optional client-supplied token; when empty a
	// fingerprint of the sanitized fields is derived instead.
	IdempotencyKey string
	// Submission is the parsed form payload.
	Submission domain.Submission
}

// Result is a successful (or silently swallowed) admission outcome.
type Result struct {
	// RequestID echoes the idempotency token identifying this submission.
	// Empty for honeypot responses, which intentionally carry nothing.
	RequestID string
	// Duplicate is true when the submission was already processed and no
	// new delivery was attempted.
	Duplicate bool
}

// Pipeline orchestrates admission: origin check, rate limit, honeypot,
// timing gate, sanitization, captcha, idempotency, routing, and delivery, in
// that fixed order. Each stage is terminal on rejection; later stages never
// run once an earlier one rejects.
//
// The pipeline holds no mutable state of its own; all cross-request state
// lives behind the injected collaborators, so one instance serves all
// requests concurrently.
type Pipeline struct {
	Origins  *origin.Provider
	Limiter  *guard.RateLimiter
	Idem     *guard.IdempotencyGuard
	Captcha  CaptchaVerifier
	Router   *routing.Router
	Delivery Deliverer
	Jobs     *pool.Pool
	Log      zerolog.Logger

	// CaptchaSecret enables challenge verification when non-empty.
	CaptchaSecret string
	// RateLimitPerMinute caps accepted submissions per client IP; <= 0
	// disables limiting.
	RateLimitPerMinute int
	// MinSubmitDelay is the minimum time between form load and submission
	// before the timing gate rejects the request.
	MinSubmitDelay time.Duration
	// FieldLimits bounds sanitized field lengths; zero values fall back to
	// DefaultLimits.
	FieldLimits Limits

	// now is a seam for the timing-gate tests.
	now func() time.Time
}

// Submit runs req through the admission gates and, when everything passes,
// relays the rendered message. The returned error is one of the package
// sentinels, a *DeliveryError, or nil.
func (p *Pipeline) Submit(ctx context.Context, req Request) (Result, error) {
	// 1) Origin allow-list. The pattern document is read fresh on every
	// admission so dynamic updates apply immediately.
	host := origin.Normalize(req.Origin)
	if !origin.Matches(host, p.Origins.Patterns(ctx)) {
		submissionsTotal.WithLabelValues("origin_not_allowed").Inc()
		return Result{}, ErrOriginNotAllowed
	}

	// 2) Per-client sliding window.
	limited, err := p.Limiter.CheckAndRecord(ctx, req.ClientIP, p.RateLimitPerMinute)
	if err != nil {
		// Degraded store: admit rather than reject, but leave a trace.
		p.Log.Warn().Err(err).Str("ip", req.ClientIP).Msg("rate-limit store unavailable")
	}
	if limited {
		submissionsTotal.WithLabelValues("rate_limited").Inc()
		return Result{}, ErrRateLimited
	}

	sub := req.Submission

	// 3) Honeypot: pretend success so automated submitters learn nothing.
	if sub.Website != "" {
		submissionsTotal.WithLabelValues("honeypot").Inc()
		p.Log.Info().Str("origin", host).Msg("honeypot tripped")
		return Result{}, nil
	}

	// 4) Timing gate. A zero/absent timestamp cannot indicate a too-fast
	// submission and passes.
	if sub.TS > 0 {
		elapsed := p.timeNow().UnixMilli() - sub.TS
		if elapsed < p.MinSubmitDelay.Milliseconds() {
			submissionsTotal.WithLabelValues("too_fast").Inc()
			return Result{}, ErrTooFast
		}
	}

	// 5) Sanitize and bound; reject fully empty payloads.
	limits := p.FieldLimits
	if limits == (Limits{}) {
		limits = DefaultLimits
	}
	name := sanitize.TrimAndBound(sub.Name, limits.NameLen)
	email := sanitize.TrimAndBound(sub.Email, limits.EmailLen)
	handle := sanitize.NormalizeHandle(sanitize.TrimAndBound(sub.Telegram, limits.HandleLen))
	message := sanitize.TrimAndBound(sub.Message, limits.MessageLen)
	if message == "" && handle == "" && email == "" {
		submissionsTotal.WithLabelValues("empty_payload").Inc()
		return Result{}, ErrEmptyPayload
	}

	// 6) Challenge verification, only when a secret is configured.
	if p.CaptchaSecret != "" {
		if !p.Captcha.Verify(ctx, sub.CaptchaToken, p.CaptchaSecret) {
			submissionsTotal.WithLabelValues("captcha_failed").Inc()
			return Result{}, ErrCaptchaFailed
		}
	}

	// 7) Idempotency: explicit key or derived fingerprint.
	token := req.IdempotencyKey
	if token == "" {
		token = guard.Fingerprint(map[string]string{
			"name":     name,
			"email":    email,
			"telegram": handle,
			"message":  message,
		})
	}
	dup, err := p.Idem.IsDuplicate(ctx, token)
	if err != nil {
		p.Log.Warn().Err(err).Msg("idempotency store unavailable")
	}
	if dup {
		// Already satisfied: success, no second delivery.
		submissionsTotal.WithLabelValues("duplicate").Inc()
		return Result{RequestID: token, Duplicate: true}, nil
	}

	// 8) Routing.
	target := p.Router.Resolve(ctx, host)
	if target.BotToken == "" || target.ChatID == "" {
		submissionsTotal.WithLabelValues("routing_not_configured").Inc()
		return Result{}, ErrRoutingNotConfigured
	}

	// 9) Render and deliver.
	text := sanitize.RenderMessage(name, email, handle, message, host)
	res, err := p.Delivery.Deliver(ctx, target, text)
	if err != nil {
		submissionsTotal.WithLabelValues("telegram_send_failed").Inc()
		deliveriesTotal.WithLabelValues("failed").Inc()
		return Result{}, &DeliveryError{Err: err}
	}
	deliveriesTotal.WithLabelValues("sent").Inc()

	// The migration-cache write only affects future requests, so it runs
	// off the response path.
	if res.Migrated {
		migrationsTotal.Inc()
		oldID, newID := target.ChatID, res.ChatID
		p.Log.Info().Str("old_chat", oldID).Str("new_chat", newID).Msg("chat migration observed")
		if p.Jobs != nil {
			p.Jobs.Enqueue(pool.Job{
				Name: "record-migration",
				Run: func(jctx context.Context) error {
					return p.Router.RecordMigration(jctx, oldID, newID)
				},
			})
		} else if err := p.Router.RecordMigration(ctx, oldID, newID); err != nil {
			p.Log.Warn().Err(err).Msg("migration cache write failed")
		}
	}

	submissionsTotal.WithLabelValues("ok").Inc()
	return Result{RequestID: token}, nil
}

func (p *Pipeline) timeNow() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}
