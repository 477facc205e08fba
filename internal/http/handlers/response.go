// Package handlers provides the HTTP handler implementations for the relay.
//
// This file defines the standard response envelope used by every endpoint.
// Success and failure share one shape so the embedding widget can always
// inspect `status` first and branch on `error` second:
//
//	HTTP/1.1 200 OK
//	{ "status": "ok", "request_id": "9f2c...", "duplicate": false }
//
//	HTTP/1.1 403 Forbidden
//	{ "status": "error", "error": "origin_not_allowed" }
//
// `error` is a stable machine-readable code (see errors.go); `detail` is
// advisory human-readable text and not part of the contract.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formgate/go-form-relay/internal/http/middleware"
)

// Response is the JSON envelope returned by all relay endpoints.
type Response struct {
	// Status is "ok" or "error".
	Status string `json:"status" example:"ok"`
	// Error is the stable machine-readable code, present on failures.
	Error string `json:"error,omitempty" example:"origin_not_allowed"`
	// Detail is an advisory human-readable elaboration of Error.
	Detail string `json:"detail,omitempty" example:"origin evil.test is not on the allow-list"`
	// RequestID identifies the accepted submission (its idempotency token).
	RequestID string `json:"request_id,omitempty" example:"9f2c4a..."`
	// Duplicate is true when the submission had already been processed.
	Duplicate bool `json:"duplicate,omitempty"`
}

// fail aborts the request with an error envelope and logs server-side errors.
func fail(c *gin.Context, status int, code, detail string) {
	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("detail", detail).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, Response{
		Status: "error",
		Error:  code,
		Detail: detail,
	})
}

// Fail is the exported variant of fail(), for router-level fallbacks.
func Fail(c *gin.Context, status int, code, detail string) { fail(c, status, code, detail) }

// okEnvelope writes a success envelope with the given identifiers.
func okEnvelope(c *gin.Context, requestID string, duplicate bool) {
	c.JSON(http.StatusOK, Response{
		Status:    "ok",
		RequestID: requestID,
		Duplicate: duplicate,
	})
}
