package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName        = "RupeeFlow"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultGatewayTimeout = 15 * time.Second
	defaultAccessTTL      = 15 * time.Minute
	defaultRefreshTTL     = 7 * 24 * time.Hour

	// Amounts are paise.
	defaultMinTransaction       = 10_000     // 100.00
	defaultMaxTransaction       = 20_000_000 // 200,000.00
	defaultDailyAddCeiling      = 50_000_000 // 500,000.00
	defaultDailyTransferCeiling = 50_000_000 // 500,000.00
	defaultOTPValidity          = 5 * time.Minute
	defaultOTPLength            = 6
)

// Limits groups the externally configurable amount ceilings and OTP policy.
type Limits struct {
	MinTransactionMinor  int64
	MaxTransactionMinor  int64
	DailyAddCeilingMinor int64
	DailyTransferMinor   int64
	OTPValidity          time.Duration
	OTPLength            int
}

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName         string
	AppEnv          string
	Port            string
	LogLevel        string
	DatabaseURL     string
	RedisURL        string
	JWTSecret       string
	RefreshSecret   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	StripeSecretKey string
	ShutdownPeriod  time.Duration
	IdempotencyTTL  time.Duration
	GatewayTimeout  time.Duration
	Limits          Limits
}

// Load reads configuration values from the environment (and an optional .env
// file) and populates a Config instance.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:         getEnv("APP_NAME", defaultAppName),
		AppEnv:          strings.ToLower(getEnv("APP_ENV", defaultAppEnv)),
		Port:            getEnv("PORT", defaultPort),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		JWTSecret:       getEnv("JWT_SECRET", "dev-access-secret"),
		RefreshSecret:   getEnv("JWT_REFRESH_SECRET", "dev-refresh-secret"),
		AccessTokenTTL:  defaultAccessTTL,
		RefreshTokenTTL: defaultRefreshTTL,
		StripeSecretKey: os.Getenv("STRIPE_SECRET_KEY"),
		ShutdownPeriod:  defaultShutdownDelay,
		IdempotencyTTL:  defaultIdempotencyTTL,
		GatewayTimeout:  defaultGatewayTimeout,
		Limits: Limits{
			MinTransactionMinor:  defaultMinTransaction,
			MaxTransactionMinor:  defaultMaxTransaction,
			DailyAddCeilingMinor: defaultDailyAddCeiling,
			DailyTransferMinor:   defaultDailyTransferCeiling,
			OTPValidity:          defaultOTPValidity,
			OTPLength:            defaultOTPLength,
		},
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.GatewayTimeout, err = durationEnv("GATEWAY_TIMEOUT", cfg.GatewayTimeout); err != nil {
		return Config{}, err
	}
	if cfg.AccessTokenTTL, err = durationEnv("ACCESS_TOKEN_TTL", cfg.AccessTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTokenTTL, err = durationEnv("REFRESH_TOKEN_TTL", cfg.RefreshTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.Limits.OTPValidity, err = durationEnv("OTP_VALIDITY", cfg.Limits.OTPValidity); err != nil {
		return Config{}, err
	}

	if cfg.Limits.MinTransactionMinor, err = int64Env("MIN_TRANSACTION_PAISE", cfg.Limits.MinTransactionMinor); err != nil {
		return Config{}, err
	}
	if cfg.Limits.MaxTransactionMinor, err = int64Env("MAX_TRANSACTION_PAISE", cfg.Limits.MaxTransactionMinor); err != nil {
		return Config{}, err
	}
	if cfg.Limits.DailyAddCeilingMinor, err = int64Env("DAILY_ADD_CEILING_PAISE", cfg.Limits.DailyAddCeilingMinor); err != nil {
		return Config{}, err
	}
	if cfg.Limits.DailyTransferMinor, err = int64Env("DAILY_TRANSFER_CEILING_PAISE", cfg.Limits.DailyTransferMinor); err != nil {
		return Config{}, err
	}
	if v := os.Getenv("OTP_LENGTH"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n < 4 || n > 10 {
			return Config{}, fmt.Errorf("invalid OTP_LENGTH: %q", v)
		}
		cfg.Limits.OTPLength = n
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set")
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set")
		}
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the app runs in a development-like environment.
func (c Config) IsDev() bool {
	switch c.AppEnv {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func int64Env(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
