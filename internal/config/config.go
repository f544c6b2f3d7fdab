package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries all runtime settings, loaded from the environment.
type Config struct {
	Environment string
	HTTPAddr    string
	DatabaseDSN string
	JWTSecret   string

	SMTP    SMTPConfig
	Billing BillingConfig
	Tracing TracingConfig
}

// SMTPConfig configures the outbound mail dispatcher.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// BillingConfig controls the statement generation and notification workers.
type BillingConfig struct {
	GraceDays         int
	GeneratorInterval time.Duration
	DispatchInterval  time.Duration
	DispatchBatchSize int
	RateCacheTTL      time.Duration
}

// TracingConfig configures the OTLP exporter.
type TracingConfig struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	SamplingRatio    float64
}

// Load reads configuration from .env (when present) and the process environment.
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{
		Environment: getenv("ENV", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		DatabaseDSN: os.Getenv("DB_DSN"),
		JWTSecret:   getenv("JWT_SECRET", "dev-secret"),
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getint("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getenv("SMTP_FROM", "no-reply@paddock.app"),
			FromName: getenv("SMTP_FROM_NAME", "Paddock"),
		},
		Billing: BillingConfig{
			GraceDays:         getint("BILLING_GRACE_DAYS", 5),
			GeneratorInterval: getduration("BILLING_GENERATOR_INTERVAL", time.Hour),
			DispatchInterval:  getduration("NOTIFY_DISPATCH_INTERVAL", 30*time.Second),
			DispatchBatchSize: getint("NOTIFY_DISPATCH_BATCH", 50),
			RateCacheTTL:      getduration("RATE_CACHE_TTL", time.Minute),
		},
		Tracing: TracingConfig{
			Enabled:          getbool("TRACING_ENABLED", false),
			ExporterEndpoint: os.Getenv("TRACING_ENDPOINT"),
			ExporterProtocol: getenv("TRACING_PROTOCOL", "http"),
			SamplingRatio:    getfloat("TRACING_SAMPLING_RATIO", 1.0),
		},
	}

	if cfg.DatabaseDSN == "" {
		return cfg, fmt.Errorf("DB_DSN is required but not set")
	}
	return cfg, nil
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool { return c.Environment == "production" }

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getint(key string, fallback int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}

func getbool(key string, fallback bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}

func getfloat(key string, fallback float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return value
}

func getduration(key string, fallback time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}
