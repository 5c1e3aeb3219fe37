package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/shopspring/decimal"

	"academy-backend/internal/domains/currency"
)

// Config holds the whole application configuration, populated from
// environment variables.
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Rates    RatesConfig
	Report   ReportConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	AccessTokenExpiry int // minutes
}

// RatesConfig is the exchange-rate snapshot loaded at startup. Every rate is
// expressed as units of the reporting currency per one unit of the foreign
// currency. The snapshot id is stamped onto every ledger row written while
// this table is live.
type RatesConfig struct {
	SnapshotID string
	USDToEGP   decimal.Decimal
	SARToEGP   decimal.Decimal
}

type ReportConfig struct {
	TopCouponsLimit int
}

// Load reads config from environment variables.
func Load() (*Config, error) {
	usdRate, err := getEnvDecimal("RATE_USD_EGP", "48.10")
	if err != nil {
		return nil, err
	}
	sarRate, err := getEnvDecimal("RATE_SAR_EGP", "12.82")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Academy API"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "academy"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 25),
			MinConns: getEnvInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenExpiry: getEnvInt("JWT_ACCESS_EXPIRY", 15),
		},
		Rates: RatesConfig{
			SnapshotID: getEnv("RATE_SNAPSHOT_ID", "2026-08-manual"),
			USDToEGP:   usdRate,
			SARToEGP:   sarRate,
		},
		Report: ReportConfig{
			TopCouponsLimit: getEnvInt("REPORT_TOP_COUPONS", 8),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the config for values that must never reach production.
func (c *Config) Validate() error {
	if c.App.Environment == "production" {
		if c.JWT.Secret == "your-secret-key-change-in-production" {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD must be set in production")
		}
	}

	if c.Rates.SnapshotID == "" {
		return fmt.Errorf("RATE_SNAPSHOT_ID must not be empty")
	}
	if c.Rates.USDToEGP.LessThanOrEqual(decimal.Zero) || c.Rates.SARToEGP.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("exchange rates must be positive")
	}

	return nil
}

// RateTable builds the currency converter from the configured snapshot.
func (c *Config) RateTable() (*currency.RateTable, error) {
	return currency.NewRateTable(c.Rates.SnapshotID, map[currency.Currency]decimal.Decimal{
		currency.USD: c.Rates.USDToEGP,
		currency.SAR: c.Rates.SARToEGP,
	})
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDecimal(key, defaultValue string) (decimal.Decimal, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}
