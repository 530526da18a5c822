package config

import (
	"os"
	"time"

	"github.com/multitest-app/backend/internal/billing"
)

// Config is loaded once at startup and treated as immutable afterwards. All
// secrets come from the environment; none are compiled in.
type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string

	// Checkout redirect targets
	CheckoutSuccessURL string
	CheckoutCancelURL  string

	// Price -> plan table
	PriceIDMonthly   string
	PriceIDQuarterly string
	PriceIDYearly    string

	// Server
	Port        string
	CORSOrigins string
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "multitest_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:  parseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m")),
		JWTRefreshExpiry: parseDuration(getEnv("JWT_REFRESH_EXPIRY", "168h")),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),

		CheckoutSuccessURL: getEnv("CHECKOUT_SUCCESS_URL", "https://app.multitest.example/success.html"),
		CheckoutCancelURL:  getEnv("CHECKOUT_CANCEL_URL", "https://app.multitest.example/cancel.html"),

		PriceIDMonthly:   getEnv("PRICE_ID_MONTHLY", ""),
		PriceIDQuarterly: getEnv("PRICE_ID_QUARTERLY", ""),
		PriceIDYearly:    getEnv("PRICE_ID_YEARLY", ""),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// PlanTable builds the price -> plan lookup from the configured price IDs.
// Empty entries are skipped; the resolver never defaults an unknown price.
func (c *Config) PlanTable() map[string]billing.PlanTier {
	table := make(map[string]billing.PlanTier, 3)
	if c.PriceIDMonthly != "" {
		table[c.PriceIDMonthly] = billing.PlanMonthly
	}
	if c.PriceIDQuarterly != "" {
		table[c.PriceIDQuarterly] = billing.PlanQuarterly
	}
	if c.PriceIDYearly != "" {
		table[c.PriceIDYearly] = billing.PlanYearly
	}
	return table
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}
