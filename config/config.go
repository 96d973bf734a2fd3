package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ErlanBelekov/prompt-library/internal/infrastructure/postgres"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env      string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT" envDefault:"8080" validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	AppName  string `env:"APP_NAME" envDefault:"Prompt Khajana" validate:"required"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`
	RedisURL    string `env:"REDIS_URL"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"10" validate:"min=1,max=200"`
	DBMinConns  int32  `env:"DB_MIN_CONNS" envDefault:"2" validate:"min=0,max=200"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	JWTSecret   string `env:"JWT_SECRET,required" validate:"required,min=32"`
	JWTTTLHours int    `env:"JWT_TTL_HOURS" envDefault:"24" validate:"min=1,max=720"`

	OTPLength           int    `env:"OTP_LENGTH" envDefault:"6" validate:"min=4,max=10"`
	OTPTTLMinutes       int    `env:"OTP_TTL_MINUTES" envDefault:"10" validate:"min=1,max=60"`
	OTPMaxAttempts      int    `env:"OTP_MAX_ATTEMPTS" envDefault:"5" validate:"min=1,max=20"`
	OTPHashCost         int    `env:"OTP_HASH_COST" envDefault:"10" validate:"min=4,max=14"`
	OTPRateLimitSeconds int    `env:"OTP_RATE_LIMIT_SECONDS" envDefault:"120" validate:"min=0,max=3600"`
	RateLimitScope      string `env:"RATE_LIMIT_SCOPE" envDefault:"session" validate:"oneof=session identity"`
	SweepSchedule       string `env:"SWEEP_SCHEDULE" envDefault:"@every 5m" validate:"required"`

	SessionTTLMinutes   int  `env:"SESSION_TTL_MINUTES" envDefault:"30" validate:"min=1,max=1440"`
	SessionCookieSecure bool `env:"SESSION_COOKIE_SECURE" envDefault:"false"`

	MailDriver   string `env:"MAIL_DRIVER" envDefault:"log" validate:"oneof=log resend smtp"`
	MailFrom     string `env:"MAIL_FROM" envDefault:"noreply@promptkhajana.com" validate:"required_unless=MailDriver log"`
	ResendAPIKey string `env:"RESEND_API_KEY" validate:"required_if=MailDriver resend"`
	SMTPHost     string `env:"SMTP_HOST" envDefault:"smtp.gmail.com" validate:"required_if=MailDriver smtp"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587" validate:"min=1,max=65535"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.Env != "local" && cfg.MailDriver == "log" {
		return nil, fmt.Errorf("invalid config: MAIL_DRIVER=log is only allowed with ENV=local")
	}

	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) PoolConfig(appName string) postgres.PoolConfig {
	return postgres.PoolConfig{
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		ApplicationName: appName,
	}
}

func (c *Config) OTPTTL() time.Duration {
	return time.Duration(c.OTPTTLMinutes) * time.Minute
}

func (c *Config) RateLimitCooldown() time.Duration {
	return time.Duration(c.OTPRateLimitSeconds) * time.Second
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

func (c *Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTTTLHours) * time.Hour
}
