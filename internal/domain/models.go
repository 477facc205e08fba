// Package domain defines the core types exchanged between the relay layers.
// These types are plain values with no transport or persistence concerns and
// are shared across the guard, routing, delivery, and HTTP layers.
package domain

// Submission is a parsed, not-yet-sanitized form submission as received from
// the widget. Website is the honeypot field: a non-empty value marks the
// submission as automated.
type Submission struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Telegram string `json:"telegram" form:"telegram"`
	Message  string `json:"message" form:"message"`
	Website  string `json:"website" form:"website"`
	// TS is the client-side form load timestamp in Unix milliseconds,
	// used by the timing gate to reject instant (scripted) submissions.
	TS int64 `json:"ts" form:"ts"`
	// CaptchaToken is the Cloudflare Turnstile response token, when the
	// widget has the challenge enabled.
	CaptchaToken string `json:"cf_turnstile_response" form:"cf_turnstile_response"`
}

// RoutingTarget is a resolved delivery destination: which bot credential to
// send with and which chat to send to.
type RoutingTarget struct {
	BotToken string
	ChatID   string
}

// DeliveryResult describes the outcome of a successful relay to Telegram.
// ChatID is the chat the message actually landed in; Migrated is true when
// that differs from the originally requested chat because the platform
// reported a group migration during the call.
type DeliveryResult struct {
	ChatID   string
	Migrated bool
}
