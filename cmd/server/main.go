package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/prompt-library/config"
	"github.com/ErlanBelekov/prompt-library/internal/clock"
	"github.com/ErlanBelekov/prompt-library/internal/email"
	"github.com/ErlanBelekov/prompt-library/internal/hash"
	"github.com/ErlanBelekov/prompt-library/internal/health"
	"github.com/ErlanBelekov/prompt-library/internal/infrastructure/postgres"
	ctxlog "github.com/ErlanBelekov/prompt-library/internal/log"
	"github.com/ErlanBelekov/prompt-library/internal/metrics"
	"github.com/ErlanBelekov/prompt-library/internal/notify"
	"github.com/ErlanBelekov/prompt-library/internal/otp"
	"github.com/ErlanBelekov/prompt-library/internal/ratelimit"
	"github.com/ErlanBelekov/prompt-library/internal/session"
	httptransport "github.com/ErlanBelekov/prompt-library/internal/transport/http"
	"github.com/ErlanBelekov/prompt-library/internal/transport/http/handler"
	"github.com/ErlanBelekov/prompt-library/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

func main() {
	// A missing .env is fine outside local dev.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.PoolConfig("promptlib-api"))
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		stop()
		log.Fatalf("migrate: %v", err)
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			stop()
			log.Fatalf("redis url: %v", err)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
	}

	clk := clock.New()
	hasher := hash.NewBcrypt(cfg.OTPHashCost)

	// OTP engine
	userRepo := postgres.NewUserRepository(pool)
	otpRepo := postgres.NewOTPRepository(pool)
	engine := otp.NewEngine(otpRepo, hasher, clk, logger, otp.Config{
		CodeLength:  cfg.OTPLength,
		TTL:         cfg.OTPTTL(),
		MaxAttempts: cfg.OTPMaxAttempts,
	})

	// Delivery
	sender, err := email.NewSender(email.Options{
		Driver:       cfg.MailDriver,
		From:         cfg.MailFrom,
		ResendAPIKey: cfg.ResendAPIKey,
		SMTP: email.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		},
	}, logger)
	if err != nil {
		stop()
		log.Fatalf("mail: %v", err)
	}
	mailer := notify.NewMailer(sender, cfg.AppName, engine.TTL(), logger)

	authUsecase := usecase.NewAuthUsecase(userRepo, engine, mailer, hasher, clk, []byte(cfg.JWTSecret), cfg.JWTTTL(), logger)
	authHandler := handler.NewAuthHandler(authUsecase, newLimiter(cfg, rdb, clk), logger)

	var sessions session.Store = session.NewMemoryStore(clk)
	if rdb != nil {
		sessions = session.NewRedisStore(rdb)
	}

	metrics.Register()
	deps := []health.Dependency{{Name: "postgres", Pinger: pool}}
	if rdb != nil {
		deps = append(deps, health.Dependency{Name: "redis", Pinger: health.RedisPinger(rdb)})
	}
	checker := health.NewChecker(logger, prometheus.DefaultRegisterer, deps...)

	srv := http.Server{
		Addr: ":" + cfg.Port,
		Handler: httptransport.NewRouter(logger, httptransport.RouterConfig{
			JWTKey:       []byte(cfg.JWTSecret),
			SessionStore: sessions,
			SessionOptions: session.Options{
				TTL:    cfg.SessionTTL(),
				Secure: cfg.SessionCookieSecure,
			},
		}, authHandler, userRepo),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port, "mail_driver", cfg.MailDriver, "rate_limit_scope", cfg.RateLimitScope)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

// newLimiter keys cooldowns on the requester's session by default. With
// RATE_LIMIT_SCOPE=identity they are shared across sessions: in redis when
// configured, otherwise in this process.
func newLimiter(cfg *config.Config, rdb *redis.Client, clk clock.Clocker) handler.LimiterFunc {
	if cfg.RateLimitScope != "identity" {
		return handler.SessionLimiter(clk, cfg.RateLimitCooldown())
	}

	var store ratelimit.Store = ratelimit.NewMemoryStore()
	if rdb != nil {
		store = ratelimit.NewRedisStore(rdb)
	}
	return handler.SharedLimiter(ratelimit.New(store, clk, cfg.RateLimitCooldown()))
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
