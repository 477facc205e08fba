// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// These symbolic constants are the stable, machine-readable half of the error
// contract: client integrations branch on them, while the human-readable
// detail string is advisory only and may change freely.
//
// Conventions:
//   - Codes are lowercase snake_case.
//   - Admission codes mirror the pipeline's rejection reasons one-to-one so
//     the widget can present targeted feedback (retry later vs. fix input).
//   - Generic codes (bad_request, not_found, ...) mirror common HTTP status
//     semantics for the surrounding routes.
package handlers

const (
	// Admission rejections (from the relay pipeline).
	ErrCodeOriginNotAllowed     = "origin_not_allowed"
	ErrCodeRateLimited          = "rate_limited"
	ErrCodeTooFast              = "too_fast"
	ErrCodeEmptyPayload         = "empty_payload"
	ErrCodeCaptchaFailed        = "captcha_failed"
	ErrCodeRoutingNotConfigured = "routing_not_configured"
	ErrCodeSendFailed           = "telegram_send_failed"

	// Generic transport codes.
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"
)
