package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/formgate/go-form-relay/internal/domain"
	"github.com/formgate/go-form-relay/internal/guard"
	"github.com/formgate/go-form-relay/internal/origin"
	"github.com/formgate/go-form-relay/internal/relay"
	"github.com/formgate/go-form-relay/internal/routing"
	"github.com/formgate/go-form-relay/internal/store"
)

// stubDeliverer scripts delivery outcomes and records rendered messages.
type stubDeliverer struct {
	err   error
	texts []string
}

func (s *stubDeliverer) Deliver(ctx context.Context, target domain.RoutingTarget, text string) (domain.DeliveryResult, error) {
	if s.err != nil {
		return domain.DeliveryResult{}, s.err
	}
	s.texts = append(s.texts, text)
	return domain.DeliveryResult{ChatID: target.ChatID}, nil
}

func newSendRouter(t *testing.T, deliver *stubDeliverer, staticOrigins []string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	kv := store.NewMemoryStore()
	pipe := &relay.Pipeline{
		Origins: &origin.Provider{KV: kv, Static: staticOrigins},
		Limiter: guard.NewRateLimiter(kv),
		Idem:    guard.NewIdempotencyGuard(kv),
		Router: routing.NewRouter(nil, domain.RoutingTarget{
			BotToken: "123:abc", ChatID: "-1001",
		}, kv),
		Delivery:           deliver,
		Log:                zerolog.Nop(),
		RateLimitPerMinute: 100,
	}

	r := gin.New()
	r.POST("/send", New(pipe).Send)
	return r
}

func postJSON(r http.Handler, body string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/send", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, w.Body.String())
	}
	return resp
}

func TestSend_OK(t *testing.T) {
	d := &stubDeliverer{}
	r := newSendRouter(t, d, nil)

	w := postJSON(r, `{"name":"Ada","email":"ada@example.com","message":"hello"}`, map[string]string{
		"Origin": "https://forms.example.com",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decodeEnvelope(t, w)
	if resp.Status != "ok" || resp.Error != "" {
		t.Fatalf("envelope = %+v", resp)
	}
	if len(resp.RequestID) != 64 {
		t.Errorf("request_id = %q, want 64-char fingerprint", resp.RequestID)
	}
	if len(d.texts) != 1 || !strings.Contains(d.texts[0], "hello") {
		t.Errorf("delivered texts = %v", d.texts)
	}
}

func TestSend_FormEncoded(t *testing.T) {
	d := &stubDeliverer{}
	r := newSendRouter(t, d, nil)

	form := url.Values{"name": {"Ada"}, "message": {"via form"}}
	req := httptest.NewRequest(http.MethodPost, "/send", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if len(d.texts) != 1 || !strings.Contains(d.texts[0], "via form") {
		t.Errorf("delivered texts = %v", d.texts)
	}
}

func TestSend_MalformedBody(t *testing.T) {
	r := newSendRouter(t, &stubDeliverer{}, nil)

	w := postJSON(r, `{"name":`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if resp := decodeEnvelope(t, w); resp.Error != ErrCodeBadRequest {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestSend_OriginNotAllowed(t *testing.T) {
	r := newSendRouter(t, &stubDeliverer{}, []string{"allowed.example.com"})

	w := postJSON(r, `{"message":"hi"}`, map[string]string{"Origin": "https://evil.test"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d", w.Code)
	}
	if resp := decodeEnvelope(t, w); resp.Error != ErrCodeOriginNotAllowed {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestSend_HoneypotSilentOK(t *testing.T) {
	d := &stubDeliverer{}
	r := newSendRouter(t, d, nil)

	w := postJSON(r, `{"message":"spam","website":"http://bot.example"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decodeEnvelope(t, w)
	if resp.Status != "ok" || resp.RequestID != "" {
		t.Errorf("honeypot envelope = %+v, want bare ok", resp)
	}
	if len(d.texts) != 0 {
		t.Errorf("honeypot submission was delivered: %v", d.texts)
	}
}

func TestSend_EmptyPayload(t *testing.T) {
	r := newSendRouter(t, &stubDeliverer{}, nil)

	w := postJSON(r, `{"name":"  ","message":""}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if resp := decodeEnvelope(t, w); resp.Error != ErrCodeEmptyPayload {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestSend_DeliveryFailure(t *testing.T) {
	d := &stubDeliverer{err: errors.New("delivery failed after 3 attempts: boom")}
	r := newSendRouter(t, d, nil)

	w := postJSON(r, `{"message":"hi"}`, nil)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decodeEnvelope(t, w)
	if resp.Error != ErrCodeSendFailed {
		t.Errorf("error = %q", resp.Error)
	}
	if !strings.Contains(resp.Detail, "boom") {
		t.Errorf("detail = %q, want underlying cause", resp.Detail)
	}
}

func TestSend_Duplicate(t *testing.T) {
	d := &stubDeliverer{}
	r := newSendRouter(t, d, nil)

	hdr := map[string]string{HeaderIdempotencyKey: "key-1"}
	if w := postJSON(r, `{"message":"once"}`, hdr); w.Code != http.StatusOK {
		t.Fatalf("first status = %d", w.Code)
	}
	w := postJSON(r, `{"message":"once"}`, hdr)
	if w.Code != http.StatusOK {
		t.Fatalf("second status = %d", w.Code)
	}
	resp := decodeEnvelope(t, w)
	if !resp.Duplicate || resp.RequestID != "key-1" {
		t.Errorf("envelope = %+v, want duplicate with original key", resp)
	}
	if len(d.texts) != 1 {
		t.Errorf("delivered %d times, want 1", len(d.texts))
	}
}

func TestSend_RoutingNotConfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	kv := store.NewMemoryStore()
	pipe := &relay.Pipeline{
		Origins:            &origin.Provider{KV: kv},
		Limiter:            guard.NewRateLimiter(kv),
		Idem:               guard.NewIdempotencyGuard(kv),
		Router:             routing.NewRouter(nil, domain.RoutingTarget{}, kv),
		Delivery:           &stubDeliverer{},
		Log:                zerolog.Nop(),
		RateLimitPerMinute: 100,
	}
	r := gin.New()
	r.POST("/send", New(pipe).Send)

	w := postJSON(r, `{"message":"hi"}`, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if resp := decodeEnvelope(t, w); resp.Error != ErrCodeRoutingNotConfigured {
		t.Errorf("error = %q", resp.Error)
	}
}
