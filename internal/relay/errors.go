// Package relay implements the request-admission pipeline: the fixed gate
// sequence that validates, rate-limits, deduplicates, and finally delivers a
// form submission. This file centralizes the service-level sentinel errors;
// translation to HTTP statuses and stable wire codes happens at the handler
// layer.
package relay

import "errors"

// Admission rejections, in pipeline order.
var (
	// ErrOriginNotAllowed indicates the request origin did not match the
	// allow-list.
	ErrOriginNotAllowed = errors.New("origin not allowed")

	// ErrRateLimited indicates the client exhausted its per-minute budget.
	ErrRateLimited = errors.New("rate limited")

	// ErrTooFast indicates the submission arrived sooner after form load
	// than a human plausibly types.
	ErrTooFast = errors.New("submitted too fast")

	// ErrEmptyPayload indicates the sanitized submission carried no
	// message, handle, or email.
	ErrEmptyPayload = errors.New("empty payload")

	// ErrCaptchaFailed indicates challenge verification did not pass.
	ErrCaptchaFailed = errors.New("captcha verification failed")

	// ErrRoutingNotConfigured indicates no credential/chat pair could be
	// resolved for the requesting domain.
	ErrRoutingNotConfigured = errors.New("routing not configured")
)

// DeliveryError wraps the upstream error after delivery retries were
// exhausted. The wrapped error's text is surfaced as advisory detail.
type DeliveryError struct {
	Err error
}

// Error implements the error interface.
func (e *DeliveryError) Error() string { return "telegram send failed: " + e.Err.Error() }

// Unwrap exposes the upstream cause.
func (e *DeliveryError) Unwrap() error { return e.Err }
