// Send endpoint.
//
// POST /send accepts a form submission (JSON or application/x-www-form-
// urlencoded), runs it through the admission pipeline, and returns the
// standard envelope. The handler is transport-thin: it parses and hands off;
// every admission decision lives in the relay package.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/formgate/go-form-relay/internal/domain"
	"github.com/formgate/go-form-relay/internal/relay"
)

// HeaderIdempotencyKey is the request header clients use to convey an
// explicit idempotency token for a submission.
const HeaderIdempotencyKey = "Idempotency-Key"

// Handler bundles the endpoint implementations and their dependencies.
type Handler struct {
	Pipeline *relay.Pipeline
}

// New constructs the endpoint handler set.
func New(p *relay.Pipeline) *Handler {
	return &Handler{Pipeline: p}
}

// Send handles POST /send.
func (h *Handler) Send(c *gin.Context) {
	var sub domain.Submission
	if err := bindSubmission(c, &sub); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request body could not be parsed")
		return
	}

	res, err := h.Pipeline.Submit(c.Request.Context(), relay.Request{
		Origin:         c.GetHeader("Origin"),
		ClientIP:       c.ClientIP(),
		IdempotencyKey: strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey)),
		Submission:     sub,
	})
	if err != nil {
		status, code := admissionStatus(err)
		detail := ""
		var de *relay.DeliveryError
		if errors.As(err, &de) {
			detail = de.Err.Error()
		}
		fail(c, status, code, detail)
		return
	}

	okEnvelope(c, res.RequestID, res.Duplicate)
}

// bindSubmission parses the body according to its content type. Gin's
// ShouldBind covers the form encodings; JSON is matched explicitly so a
// missing content type still defaults to the widget's JSON payload.
func bindSubmission(c *gin.Context, sub *domain.Submission) error {
	ct := c.ContentType()
	switch {
	case strings.Contains(ct, "json"), ct == "":
		return c.ShouldBindJSON(sub)
	default:
		return c.ShouldBind(sub)
	}
}

// admissionStatus maps pipeline sentinels to (HTTP status, stable code).
func admissionStatus(err error) (int, string) {
	switch {
	case errors.Is(err, relay.ErrOriginNotAllowed):
		return http.StatusForbidden, ErrCodeOriginNotAllowed
	case errors.Is(err, relay.ErrRateLimited):
		return http.StatusTooManyRequests, ErrCodeRateLimited
	case errors.Is(err, relay.ErrTooFast):
		return http.StatusBadRequest, ErrCodeTooFast
	case errors.Is(err, relay.ErrEmptyPayload):
		return http.StatusBadRequest, ErrCodeEmptyPayload
	case errors.Is(err, relay.ErrCaptchaFailed):
		return http.StatusBadRequest, ErrCodeCaptchaFailed
	case errors.Is(err, relay.ErrRoutingNotConfigured):
		return http.StatusInternalServerError, ErrCodeRoutingNotConfigured
	default:
		var de *relay.DeliveryError
		if errors.As(err, &de) {
			return http.StatusBadGateway, ErrCodeSendFailed
		}
		return http.StatusInternalServerError, ErrCodeInternal
	}
}
