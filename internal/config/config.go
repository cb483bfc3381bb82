package config

import (
	"os"
	"strconv"

	"github.com/shopspring/decimal"
)

// Config holds application configuration values.
type Config struct {
	Secret         string
	DatabaseDSN    string
	HTTPPort       string
	DefaultTaxRate decimal.Decimal
}

// Load reads configuration from environment variables with reasonable defaults.
func Load() Config {
	secret := os.Getenv("SECRET")
	if secret == "" {
		secret = "dev_secret"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}
	if _, err := strconv.Atoi(port); err != nil {
		port = "8080"
	}

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = "file:farmapos.db?_pragma=foreign_keys(1)"
	}

	rate := decimal.NewFromFloat(0.16)
	if raw := os.Getenv("TAX_RATE"); raw != "" {
		if parsed, err := decimal.NewFromString(raw); err == nil && !parsed.IsNegative() {
			rate = parsed
		}
	}

	return Config{Secret: secret, DatabaseDSN: dsn, HTTPPort: port, DefaultTaxRate: rate}
}
