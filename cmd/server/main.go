// Command server runs the form relay HTTP service: it accepts website form
// submissions, runs them through the admission pipeline (origin allow-list,
// rate limit, honeypot, timing gate, captcha, idempotency), and relays the
// accepted ones to Telegram.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/formgate/go-form-relay/internal/captcha"
	"github.com/formgate/go-form-relay/internal/config"
	"github.com/formgate/go-form-relay/internal/guard"
	httpapi "github.com/formgate/go-form-relay/internal/http"
	"github.com/formgate/go-form-relay/internal/observability"
	"github.com/formgate/go-form-relay/internal/origin"
	"github.com/formgate/go-form-relay/internal/pool"
	"github.com/formgate/go-form-relay/internal/relay"
	"github.com/formgate/go-form-relay/internal/routing"
	"github.com/formgate/go-form-relay/internal/store"
	"github.com/formgate/go-form-relay/internal/sysutil"
	"github.com/formgate/go-form-relay/internal/telegram"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Local development convenience; absent .env is fine.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	// Shared TTL store: Redis when configured, in-process otherwise. The
	// in-process store only makes sense for a single instance.
	var kv store.KV
	var redisStore *store.RedisStore
	if cfg.Redis.Addr != "" {
		redisStore, err = store.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable")
		}
		kv = redisStore
		log.Info().Str("addr", cfg.Redis.Addr).Msg("using redis store")
	} else {
		kv = store.NewMemoryStore()
		log.Warn().Msg("REDIS_ADDR not set; using in-process store")
	}

	jobs, err := pool.New(pool.Config{Workers: cfg.Relay.PoolWorkers}, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("worker pool setup failed")
	}
	jobs.Start(ctx)

	origins := &origin.Provider{KV: kv, Static: cfg.Relay.StaticOrigins}

	pipe := &relay.Pipeline{
		Origins:  origins,
		Limiter:  guard.NewRateLimiter(kv),
		Idem:     guard.NewIdempotencyGuardTTL(kv, cfg.Relay.IdempotencyTTL),
		Captcha:  captcha.NewVerifier(cfg.Relay.TurnstileVerifyURL),
		Router:   routing.NewRouter(cfg.Relay.Routes, cfg.Relay.DefaultTarget, kv),
		Delivery: telegram.NewDeliveryService(telegram.NewClient(cfg.Relay.TelegramAPIBase)),
		Jobs:     jobs,
		Log:      log.Logger,

		CaptchaSecret:      cfg.Relay.TurnstileSecret,
		RateLimitPerMinute: cfg.Relay.RateLimitPerMinute,
		MinSubmitDelay:     cfg.Relay.MinSubmitDelay,
		FieldLimits: relay.Limits{
			NameLen:    cfg.Relay.MaxNameLen,
			EmailLen:   cfg.Relay.MaxEmailLen,
			HandleLen:  cfg.Relay.MaxHandleLen,
			MessageLen: cfg.Relay.MaxMessageLen,
		},
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, pipe, origins, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	jobs.Stop()
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	if redisStore != nil {
		if err := redisStore.Close(); err != nil {
			log.Error().Err(err).Msg("redis close")
		}
	}
	log.Info().Msg("server stopped")
}
