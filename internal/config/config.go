package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const PROD_STRING = "prod"

// Config holds all application configuration loaded from environment.
type Config struct {
	AppEnv       string
	IsProduction bool
	ProdOrigins  string
	HTTPAddr     string
	LogLevel     string

	DBDSN            string
	DBLockTimeout    time.Duration
	DBTxMaxAttempts  int
	DBTxRetryBackoff time.Duration

	JWTSecret         string
	JWTAccessTokenTTL time.Duration

	PaymentSigningSecret string
	Currency             string
	CommissionBPS        int

	HoldDuration   time.Duration
	DraftRetention time.Duration

	RefundFullWindow     time.Duration
	RefundPartialWindow  time.Duration
	RefundPartialPercent int
	RefundMaxAttempts    int

	SweepInterval  time.Duration
	SweepBatchSize int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AMQPURL        string
	EventsExchange string
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", slog.Any("error", err))
	}

	cfg := &Config{}
	var err error

	cfg.AppEnv = getEnv("APP_ENV", "dev")
	cfg.IsProduction = cfg.AppEnv == PROD_STRING
	cfg.ProdOrigins = getEnv("PROD_ORIGINS", "")
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	// Database DSN is required
	cfg.DBDSN = os.Getenv("DB_DSN")
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required")
	}

	// JWT secret is required for signing tokens
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	// Gateway callbacks are verified against this secret
	cfg.PaymentSigningSecret = os.Getenv("PAYMENT_SIGNING_SECRET")
	if cfg.PaymentSigningSecret == "" {
		return nil, fmt.Errorf("PAYMENT_SIGNING_SECRET is required")
	}

	durations := []struct {
		key  string
		def  time.Duration
		dest *time.Duration
	}{
		{"JWT_ACCESS_TOKEN_TTL", 15 * time.Minute, &cfg.JWTAccessTokenTTL},
		{"DB_LOCK_TIMEOUT", 3 * time.Second, &cfg.DBLockTimeout},
		{"DB_TX_RETRY_BACKOFF", 50 * time.Millisecond, &cfg.DBTxRetryBackoff},
		{"HOLD_DURATION", 15 * time.Minute, &cfg.HoldDuration},
		{"DRAFT_RETENTION", 0, &cfg.DraftRetention},
		{"REFUND_FULL_WINDOW", 48 * time.Hour, &cfg.RefundFullWindow},
		{"REFUND_PARTIAL_WINDOW", 24 * time.Hour, &cfg.RefundPartialWindow},
		{"SWEEP_INTERVAL", time.Minute, &cfg.SweepInterval},
	}
	for _, d := range durations {
		if *d.dest, err = getEnvAsDuration(d.key, d.def); err != nil {
			return nil, err
		}
	}

	ints := []struct {
		key  string
		def  int
		dest *int
	}{
		{"DB_TX_MAX_ATTEMPTS", 3, &cfg.DBTxMaxAttempts},
		{"COMMISSION_BPS", 1000, &cfg.CommissionBPS},
		{"REFUND_PARTIAL_PERCENT", 50, &cfg.RefundPartialPercent},
		{"REFUND_MAX_ATTEMPTS", 5, &cfg.RefundMaxAttempts},
		{"SWEEP_BATCH_SIZE", 100, &cfg.SweepBatchSize},
		{"REDIS_DB", 0, &cfg.RedisDB},
	}
	for _, i := range ints {
		if *i.dest, err = getEnvAsInt(i.key, i.def); err != nil {
			return nil, err
		}
	}

	cfg.Currency = strings.ToUpper(getEnv("CURRENCY", "INR"))
	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.AMQPURL = getEnv("AMQP_URL", "")
	cfg.EventsExchange = getEnv("EVENTS_EXCHANGE", "reservation.events")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.IsProduction && strings.TrimSpace(c.ProdOrigins) == "":
		return fmt.Errorf("PROD_ORIGINS is required when APP_ENV=%s", PROD_STRING)
	case c.HoldDuration <= 0:
		return fmt.Errorf("HOLD_DURATION must be positive")
	case c.DraftRetention < 0:
		return fmt.Errorf("DRAFT_RETENTION must not be negative")
	case c.DBTxMaxAttempts < 1:
		return fmt.Errorf("DB_TX_MAX_ATTEMPTS must be at least 1")
	case c.DBLockTimeout <= 0:
		return fmt.Errorf("DB_LOCK_TIMEOUT must be positive")
	case len(c.Currency) != 3:
		return fmt.Errorf("CURRENCY must be a 3-letter code")
	case c.CommissionBPS < 0 || c.CommissionBPS > 10000:
		return fmt.Errorf("COMMISSION_BPS must be within [0, 10000]")
	case c.RefundPartialPercent < 0 || c.RefundPartialPercent > 100:
		return fmt.Errorf("REFUND_PARTIAL_PERCENT must be within [0, 100]")
	case c.RefundFullWindow < c.RefundPartialWindow:
		return fmt.Errorf("REFUND_FULL_WINDOW must not be shorter than REFUND_PARTIAL_WINDOW")
	case c.RefundMaxAttempts < 1:
		return fmt.Errorf("REFUND_MAX_ATTEMPTS must be at least 1")
	case c.SweepInterval <= 0:
		return fmt.Errorf("SWEEP_INTERVAL must be positive")
	case c.SweepBatchSize < 1:
		return fmt.Errorf("SWEEP_BATCH_SIZE must be at least 1")
	}
	return nil
}

// getEnv returns the value of the environment variable if set,
// otherwise returns the provided default value.
func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer.
// It returns an error if the variable is set but is not a valid integer.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid integer: %w", key, valStr, err)
	}
	return val, nil
}

// getEnvAsDuration parses values such as "15m" or "48h".
func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid duration: %w", key, valStr, err)
	}
	return val, nil
}
