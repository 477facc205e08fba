package config

import (
	"strings"
	"testing"
	"time"
)

// clearEnv unsets every variable Load reads so host environments don't leak
// into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PORT", "READ_TIMEOUT", "READ_HEADER_TIMEOUT", "WRITE_TIMEOUT",
		"IDLE_TIMEOUT", "MAX_HEADER_BYTES", "GIN_MODE",
		"LOG_LEVEL", "LOG_PRETTY", "ADMIN_TOKEN",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "TELEGRAM_ROUTES",
		"TELEGRAM_API_BASE", "ALLOWED_ORIGINS",
		"RATE_LIMIT_PER_MINUTE", "MIN_SUBMIT_MS", "IDEMPOTENCY_TTL",
		"MAX_NAME_LEN", "MAX_EMAIL_LEN", "MAX_HANDLE_LEN", "MAX_MESSAGE_LEN",
		"TURNSTILE_SECRET", "TURNSTILE_VERIFY_URL", "POOL_WORKERS",
		"ENABLE_HSTS", "HSTS_MAX_AGE",
		"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT",
		"OTEL_EXPORTER_OTLP_INSECURE", "OTEL_SERVICE_NAME",
		"OTEL_TRACES_SAMPLER_ARG",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q, want release", cfg.GinMode)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.Relay.RateLimitPerMinute != 5 {
		t.Errorf("RateLimitPerMinute = %d, want 5", cfg.Relay.RateLimitPerMinute)
	}
	if cfg.Relay.MinSubmitDelay != 800*time.Millisecond {
		t.Errorf("MinSubmitDelay = %v, want 800ms", cfg.Relay.MinSubmitDelay)
	}
	if cfg.Relay.MaxMessageLen != 4000 {
		t.Errorf("MaxMessageLen = %d, want 4000", cfg.Relay.MaxMessageLen)
	}
	if len(cfg.Relay.Routes) != 0 {
		t.Errorf("Routes = %v, want empty", cfg.Relay.Routes)
	}
	if cfg.Redis.Addr != "" {
		t.Errorf("Redis.Addr = %q, want empty", cfg.Redis.Addr)
	}
	if cfg.OTEL.ServiceName != "go-form-relay" {
		t.Errorf("OTEL.ServiceName = %q", cfg.OTEL.ServiceName)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("GIN_MODE", "TEST")
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "12")
	t.Setenv("MIN_SUBMIT_MS", "250")
	t.Setenv("ALLOWED_ORIGINS", "example.com, *.example.org ,")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-100555")
	t.Setenv("ENABLE_HSTS", "yes")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.GinMode != "test" {
		t.Errorf("GinMode = %q, want test", cfg.GinMode)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn (normalized)", cfg.LogLevel)
	}
	if cfg.Relay.RateLimitPerMinute != 12 {
		t.Errorf("RateLimitPerMinute = %d", cfg.Relay.RateLimitPerMinute)
	}
	if cfg.Relay.MinSubmitDelay != 250*time.Millisecond {
		t.Errorf("MinSubmitDelay = %v", cfg.Relay.MinSubmitDelay)
	}
	want := []string{"example.com", "*.example.org"}
	if len(cfg.Relay.StaticOrigins) != len(want) {
		t.Fatalf("StaticOrigins = %v, want %v", cfg.Relay.StaticOrigins, want)
	}
	for i := range want {
		if cfg.Relay.StaticOrigins[i] != want[i] {
			t.Errorf("StaticOrigins[%d] = %q, want %q", i, cfg.Relay.StaticOrigins[i], want[i])
		}
	}
	if cfg.Relay.DefaultTarget.BotToken != "123:abc" || cfg.Relay.DefaultTarget.ChatID != "-100555" {
		t.Errorf("DefaultTarget = %+v", cfg.Relay.DefaultTarget)
	}
	if !cfg.Security.EnableHSTS {
		t.Error("EnableHSTS = false, want true")
	}
}

func TestLoad_Routes(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_ROUTES", `{"Forms.Example.COM":{"token":"999:zzz","chat_id":"-42"},"other.io":{"chat_id":"-7"}}`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	r, ok := cfg.Relay.Routes["forms.example.com"]
	if !ok {
		t.Fatalf("route for forms.example.com missing (keys not lower-cased?): %v", cfg.Relay.Routes)
	}
	if r.BotToken != "999:zzz" || r.ChatID != "-42" {
		t.Errorf("route = %+v", r)
	}
	if r2 := cfg.Relay.Routes["other.io"]; r2.BotToken != "" || r2.ChatID != "-7" {
		t.Errorf("partial route = %+v, want empty token inherited later", r2)
	}
}

func TestLoad_RoutesInvalidJSON(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_ROUTES", `{"oops`)

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "TELEGRAM_ROUTES") {
		t.Fatalf("err = %v, want TELEGRAM_ROUTES parse error", err)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
	}{
		{"negative rate limit", "RATE_LIMIT_PER_MINUTE", "-1"},
		{"negative submit delay", "MIN_SUBMIT_MS", "-5"},
		{"zero message limit", "MAX_MESSAGE_LEN", "0"},
		{"zero workers", "POOL_WORKERS", "0"},
		{"zero idempotency ttl", "IDEMPOTENCY_TTL", "0s"},
		{"bad sample ratio", "OTEL_TRACES_SAMPLER_ARG", "1.5"},
		{"bad log level", "LOG_LEVEL", "verbose"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.val)
			if _, err := Load(); err == nil {
				t.Fatalf("Load accepted %s=%s", tc.key, tc.val)
			}
		})
	}
}

func TestMustLoad_PanicsOnInvalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("POOL_WORKERS", "-3")
	defer func() {
		if recover() == nil {
			t.Fatal("MustLoad did not panic")
		}
	}()
	MustLoad()
}
