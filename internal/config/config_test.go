package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/multitest-app/backend/internal/billing"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"DB_HOST", "DB_PORT", "DB_SSLMODE", "JWT_ACCESS_EXPIRY", "JWT_REFRESH_EXPIRY", "PORT"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "localhost", cfg.DBHost)
	assert.Equal(t, "5432", cfg.DBPort)
	assert.Equal(t, "disable", cfg.DBSSLMode)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessExpiry)
	assert.Equal(t, 168*time.Hour, cfg.JWTRefreshExpiry)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("JWT_ACCESS_EXPIRY", "30m")
	t.Setenv("PORT", "9090")

	cfg := Load()
	assert.Equal(t, "db.internal", cfg.DBHost)
	assert.Equal(t, 30*time.Minute, cfg.JWTAccessExpiry)
	assert.Equal(t, "9090", cfg.Port)
}

func TestDSN(t *testing.T) {
	cfg := &Config{
		DBHost: "localhost", DBPort: "5432", DBUser: "postgres",
		DBPassword: "secret", DBName: "app_db", DBSSLMode: "disable",
	}
	assert.Equal(t,
		"host=localhost user=postgres password=secret dbname=app_db port=5432 sslmode=disable TimeZone=UTC",
		cfg.DSN())
}

func TestPlanTable(t *testing.T) {
	cfg := &Config{
		PriceIDMonthly: "price_m",
		PriceIDYearly:  "price_y",
	}

	table := cfg.PlanTable()
	assert.Len(t, table, 2)
	assert.Equal(t, billing.PlanMonthly, table["price_m"])
	assert.Equal(t, billing.PlanYearly, table["price_y"])
}
