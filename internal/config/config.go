// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, the store connection, relay behavior
// (rate limits, timing gate, field bounds), Telegram routing, and
// observability.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/formgate/go-form-relay/internal/domain"
)

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-form-relay")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// RedisConfig locates the shared TTL store. An empty Addr selects the
// in-process store (single-instance deployments and tests).
type RedisConfig struct {
	Addr     string // REDIS_ADDR, e.g. "localhost:6379"
	Password string // REDIS_PASSWORD
	DB       int    // REDIS_DB
}

// RelayConfig holds the admission and delivery behavior knobs.
type RelayConfig struct {
	// DefaultTarget is the process-wide credential/chat fallback.
	DefaultTarget domain.RoutingTarget
	// Routes maps a normalized hostname to its delivery target, parsed
	// from the TELEGRAM_ROUTES JSON document.
	Routes map[string]domain.RoutingTarget
	// StaticOrigins is the statically configured allow-list, merged with
	// the dynamic document from the store.
	StaticOrigins []string

	RateLimitPerMinute int           // RATE_LIMIT_PER_MINUTE (0 disables)
	MinSubmitDelay     time.Duration // MIN_SUBMIT_MS, human-typing floor
	IdempotencyTTL     time.Duration // IDEMPOTENCY_TTL, duplicate suppression window

	MaxNameLen    int // MAX_NAME_LEN
	MaxEmailLen   int // MAX_EMAIL_LEN
	MaxHandleLen  int // MAX_HANDLE_LEN
	MaxMessageLen int // MAX_MESSAGE_LEN

	TurnstileSecret    string // TURNSTILE_SECRET (empty disables captcha)
	TurnstileVerifyURL string // TURNSTILE_VERIFY_URL (defaults to Cloudflare)

	TelegramAPIBase string // TELEGRAM_API_BASE (override for tests/proxies)

	PoolWorkers int // POOL_WORKERS for fire-and-forget background writes
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// Administrative API
	AdminToken string // ADMIN_TOKEN (empty disables /admin routes)

	Redis    RedisConfig
	Relay    RelayConfig
	Security SecurityConfig
	OTEL     OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		AdminToken: getenv("ADMIN_TOKEN", ""),

		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", ""),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getint("REDIS_DB", 0),
		},

		Relay: RelayConfig{
			DefaultTarget: domain.RoutingTarget{
				BotToken: getenv("TELEGRAM_BOT_TOKEN", ""),
				ChatID:   getenv("TELEGRAM_CHAT_ID", ""),
			},
			StaticOrigins: splitCSV(getenv("ALLOWED_ORIGINS", "")),

			RateLimitPerMinute: getint("RATE_LIMIT_PER_MINUTE", 5),
			MinSubmitDelay:     time.Duration(getint("MIN_SUBMIT_MS", 800)) * time.Millisecond,
			IdempotencyTTL:     getdur("IDEMPOTENCY_TTL", 300*time.Second),

			MaxNameLen:    getint("MAX_NAME_LEN", 200),
			MaxEmailLen:   getint("MAX_EMAIL_LEN", 200),
			MaxHandleLen:  getint("MAX_HANDLE_LEN", 100),
			MaxMessageLen: getint("MAX_MESSAGE_LEN", 4000),

			TurnstileSecret:    getenv("TURNSTILE_SECRET", ""),
			TurnstileVerifyURL: getenv("TURNSTILE_VERIFY_URL", ""),

			TelegramAPIBase: getenv("TELEGRAM_API_BASE", ""),

			PoolWorkers: getint("POOL_WORKERS", 2),
		},

		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-form-relay"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	routes, err := parseRoutes(getenv("TELEGRAM_ROUTES", ""))
	if err != nil {
		return cfg, err
	}
	cfg.Relay.Routes = routes

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.Relay.RateLimitPerMinute < 0 {
		return cfg, errors.New("RATE_LIMIT_PER_MINUTE must be >= 0")
	}
	if cfg.Relay.MinSubmitDelay < 0 {
		return cfg, errors.New("MIN_SUBMIT_MS must be >= 0")
	}
	if cfg.Relay.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be a positive duration")
	}
	if cfg.Relay.MaxNameLen < 1 || cfg.Relay.MaxEmailLen < 1 || cfg.Relay.MaxHandleLen < 1 || cfg.Relay.MaxMessageLen < 1 {
		return cfg, errors.New("field length limits must be >= 1")
	}
	if cfg.Relay.PoolWorkers < 1 {
		return cfg, errors.New("POOL_WORKERS must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// routeEntry is one value in the TELEGRAM_ROUTES JSON document:
//
//	{"forms.example.com": {"token": "123:abc", "chat_id": "-100123"}}
//
// Either field may be omitted to inherit the process-wide default.
type routeEntry struct {
	Token  string `json:"token"`
	ChatID string `json:"chat_id"`
}

// parseRoutes decodes the per-domain routing table. Hostname keys are
// lower-cased so lookups against normalized origins match.
func parseRoutes(raw string) (map[string]domain.RoutingTarget, error) {
	routes := map[string]domain.RoutingTarget{}
	if strings.TrimSpace(raw) == "" {
		return routes, nil
	}
	var entries map[string]routeEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("TELEGRAM_ROUTES is not valid JSON: %w", err)
	}
	for host, e := range entries {
		host = strings.ToLower(strings.TrimSpace(host))
		if host == "" {
			continue
		}
		routes[host] = domain.RoutingTarget{BotToken: e.Token, ChatID: e.ChatID}
	}
	return routes, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
