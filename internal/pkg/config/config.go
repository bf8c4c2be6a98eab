// Package config builds the typed application configuration from the
// environment loaded by package env.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ManuelReschke/UniClips/internal/pkg/env"
	"github.com/ManuelReschke/UniClips/internal/pkg/money"
)

type Config struct {
	AppHost string
	AppPort string

	DB    DBConfig
	Cache CacheConfig

	Stripe StripeConfig

	FrontendURL        string
	Currency           string
	BundleDefaultPrice int64
	AccessDuration     time.Duration
	ConnectCountry     string

	JWTSecret string

	MetricsUser     string
	MetricsPassword string

	RateLimitMax    int
	RateLimitWindow time.Duration
}

type DBConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	Name     string
}

// DSN returns the go-sql-driver DSN used by gorm.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

// MigrateURL returns the golang-migrate database URL.
func (c DBConfig) MigrateURL() string {
	return fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

type CacheConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func (c CacheConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

// Load reads the configuration. It fails only on malformed values; missing
// processor keys are reported later as "not configured".
func Load() (*Config, error) {
	price, err := money.ParsePositiveMinor(env.GetEnv("BUNDLE_DEFAULT_PRICE", "6.00"))
	if err != nil {
		return nil, fmt.Errorf("BUNDLE_DEFAULT_PRICE: %w", err)
	}

	days := env.GetInt("ACCESS_DURATION_DAYS", 365)
	if days < 0 {
		return nil, fmt.Errorf("ACCESS_DURATION_DAYS must not be negative, got %d", days)
	}

	window, err := time.ParseDuration(env.GetEnv("RATE_LIMIT_WINDOW", "1m"))
	if err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_WINDOW: %w", err)
	}

	return &Config{
		AppHost: env.GetEnv("APP_HOST", "localhost"),
		AppPort: env.GetEnv("APP_PORT", "4000"),
		DB: DBConfig{
			User:     env.GetEnv("DB_USER", "uniclips"),
			Password: env.GetEnv("DB_PASSWORD", "uniclips"),
			Host:     env.GetEnv("DB_HOST", "127.0.0.1"),
			Port:     env.GetEnv("DB_PORT", "3306"),
			Name:     env.GetEnv("DB_NAME", "uniclips_db"),
		},
		Cache: CacheConfig{
			Host:     env.GetEnv("CACHE_HOST", "localhost"),
			Port:     env.GetEnv("CACHE_PORT", "6379"),
			Password: env.GetEnv("CACHE_PASSWORD", ""),
			DB:       env.GetInt("CACHE_DB", 0),
		},
		Stripe: StripeConfig{
			SecretKey:     strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
			WebhookSecret: strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET", "")),
		},
		FrontendURL:        strings.TrimRight(env.GetEnv("FRONTEND_URL", "http://localhost:5173"), "/"),
		Currency:           strings.ToLower(env.GetEnv("CURRENCY", "eur")),
		BundleDefaultPrice: price,
		AccessDuration:     time.Duration(days) * 24 * time.Hour,
		ConnectCountry:     strings.ToUpper(env.GetEnv("CONNECT_COUNTRY", "FI")),
		JWTSecret:          env.GetEnv("JWT_SECRET", ""),
		MetricsUser:        env.GetEnv("METRICS_USER", "admin"),
		MetricsPassword:    env.GetEnv("METRICS_PASSWORD", ""),
		RateLimitMax:       env.GetInt("RATE_LIMIT_MAX", 60),
		RateLimitWindow:    window,
	}, nil
}
