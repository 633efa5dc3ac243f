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

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	StorageBackend string
	DatabaseURL    string
	JWTSecretKey   string
	ServerPort     int
	LogLevel       slog.Level
	RunMigrations  bool
	SeedSampleData bool

	StripeSecretKey string
	PaymentCurrency string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string

	CORSAllowedOrigins []string
	SecureCookies      bool
	AuthRateLimit      float64
	AuthRateBurst      int
	ReconcileInterval  time.Duration
}

// R2Configured reports whether object storage credentials were given.
func (c *Config) R2Configured() bool {
	return c.R2AccountID != ""
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		DatabaseURL:     getenv("DATABASE_URL"),
		JWTSecretKey:    getenv("JWT_SECRET_KEY"),
		StripeSecretKey: getenv("STRIPE_SECRET_KEY"),
		PaymentCurrency: strings.ToLower(withDefault(getenv("PAYMENT_CURRENCY"), "usd")),

		R2AccountID:       getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   getenv("R2_PUBLIC_BASE_URL"),

		CORSAllowedOrigins: splitList(getenv("CORS_ALLOWED_ORIGINS")),
	}

	if cfg.JWTSecretKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	cfg.StorageBackend = strings.ToLower(getenv("STORAGE_BACKEND"))
	if cfg.StorageBackend == "" {
		cfg.StorageBackend = BackendMemory
		if cfg.DatabaseURL != "" {
			cfg.StorageBackend = BackendPostgres
		}
	}
	switch cfg.StorageBackend {
	case BackendMemory:
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
		}
	default:
		return nil, fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", BackendMemory, BackendPostgres, cfg.StorageBackend)
	}

	port, err := strconv.Atoi(withDefault(getenv("SERVER_PORT"), "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}
	cfg.ServerPort = port

	if err := cfg.LogLevel.UnmarshalText([]byte(withDefault(getenv("LOG_LEVEL"), "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL environment variable: %w", err)
	}

	if cfg.RunMigrations, err = parseBool(getenv, "RUN_MIGRATIONS", true); err != nil {
		return nil, err
	}
	if cfg.SeedSampleData, err = parseBool(getenv, "SEED_SAMPLE_DATA", true); err != nil {
		return nil, err
	}

	if cfg.SecureCookies, err = parseBool(getenv, "SECURE_COOKIES", false); err != nil {
		return nil, err
	}

	if len(cfg.PaymentCurrency) != 3 {
		return nil, fmt.Errorf("PAYMENT_CURRENCY must be a three-letter ISO code, got %q", cfg.PaymentCurrency)
	}

	r2 := []string{cfg.R2AccountID, cfg.R2AccessKeyID, cfg.R2SecretAccessKey, cfg.R2BucketName, cfg.R2PublicBaseURL}
	set := 0
	for _, v := range r2 {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != len(r2) {
		return nil, fmt.Errorf("R2 configuration is incomplete: set all of R2_ACCOUNT_ID, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY, R2_BUCKET_NAME, R2_PUBLIC_BASE_URL or none")
	}

	cfg.AuthRateLimit, err = strconv.ParseFloat(withDefault(getenv("AUTH_RATE_LIMIT"), "5"), 64)
	if err != nil || cfg.AuthRateLimit <= 0 {
		return nil, fmt.Errorf("AUTH_RATE_LIMIT must be a positive number")
	}
	cfg.AuthRateBurst, err = strconv.Atoi(withDefault(getenv("AUTH_RATE_BURST"), "10"))
	if err != nil || cfg.AuthRateBurst <= 0 {
		return nil, fmt.Errorf("AUTH_RATE_BURST must be a positive integer")
	}

	cfg.ReconcileInterval, err = time.ParseDuration(withDefault(getenv("RECONCILE_INTERVAL"), "10m"))
	if err != nil || cfg.ReconcileInterval <= 0 {
		return nil, fmt.Errorf("RECONCILE_INTERVAL must be a positive duration")
	}

	return cfg, nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func parseBool(getenv func(string) string, name string, def bool) (bool, error) {
	v := getenv(name)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return b, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
