// Package captcha verifies Cloudflare Turnstile response tokens server-side.
// Verification is fail-closed: an empty token or secret, a transport error,
// or an unparseable response all count as failure. There is no retry; a
// challenge that did not verify must not silently admit the request.
package captcha

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultVerifyURL is Cloudflare's siteverify endpoint.
const DefaultVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// Verifier performs synchronous Turnstile token verification.
type Verifier struct {
	client    *http.Client
	verifyURL string
}

// NewVerifier returns a Verifier posting to verifyURL (DefaultVerifyURL when
// empty) with a bounded request timeout.
func NewVerifier(verifyURL string) *Verifier {
	if verifyURL == "" {
		verifyURL = DefaultVerifyURL
	}
	return &Verifier{
		client:    &http.Client{Timeout: 10 * time.Second},
		verifyURL: verifyURL,
	}
}

// siteverifyResponse is the subset of the Turnstile verdict we consume.
type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify exchanges token+secret for a boolean verdict. Any failure along the
// way (missing inputs, transport, non-2xx, parse) yields false.
func (v *Verifier) Verify(ctx context.Context, token, secret string) bool {
	if strings.TrimSpace(token) == "" || strings.TrimSpace(secret) == "" {
		return false
	}

	form := url.Values{
		"secret":   {secret},
		"response": {token},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false
	}

	var verdict siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return false
	}
	return verdict.Success
}
