package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"smpc-microfin/internal/core/domain"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application
type Config struct {
	AppMode  string
	Port     string
	Database DatabaseConfig
	JWT      JWTConfig
	Ledger   LedgerConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	RefreshSecret    string
	AccessTokenMins  int
	RefreshTokenDays int
}

// LedgerConfig holds the adjustment ledger parameters
type LedgerConfig struct {
	// DayOffsetHours fixes the ledger calendar-day boundary (UTC+8 for
	// Philippine field operations); never read from the host zone.
	DayOffsetHours int
	// DaysCountWarnThreshold flags members whose collection day counter
	// crosses this value during a bulk update.
	DaysCountWarnThreshold int
	// AccrualRate is the per-period savings accrual rate (e.g. "0.005").
	AccrualRate decimal.Decimal
	// AccrualCronSpec schedules the accrual run (cron format).
	AccrualCronSpec string
}

// Location returns the fixed ledger day-boundary location
func (l LedgerConfig) Location() *time.Location {
	return domain.DayLocation(l.DayOffsetHours)
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Get APP_MODE (default to "dev") - trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	ledger, err := loadLedgerConfig()
	if err != nil {
		return nil, err
	}

	config := &Config{
		AppMode:  appMode,
		Port:     getEnv("PORT", "3000"),
		Database: loadDatabaseConfig(appMode),
		JWT:      loadJWTConfig(appMode),
		Ledger:   ledger,
	}

	// Set global config
	AppConfig = config

	log.Printf("✅ Configuration loaded successfully [MODE: %s]", appMode)
	return config, nil
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	return DatabaseConfig{
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", "3306"),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "smpc_microfin"),
	}
}

// loadJWTConfig loads JWT config based on mode
func loadJWTConfig(mode string) JWTConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	accessMins, _ := strconv.Atoi(getEnv("ACCESS_TOKEN_MINUTES", "15"))
	refreshDays, _ := strconv.Atoi(getEnv("REFRESH_TOKEN_DAYS", "7"))

	return JWTConfig{
		Secret:           getEnv(prefix+"JWT_SECRET", "default_secret"),
		RefreshSecret:    getEnv(prefix+"JWT_REFRESH_SECRET", "default_refresh_secret"),
		AccessTokenMins:  accessMins,
		RefreshTokenDays: refreshDays,
	}
}

// loadLedgerConfig loads the adjustment ledger parameters
func loadLedgerConfig() (LedgerConfig, error) {
	offset, err := strconv.Atoi(getEnv("LEDGER_UTC_OFFSET_HOURS", strconv.Itoa(domain.DefaultDayOffsetHours)))
	if err != nil {
		return LedgerConfig{}, fmt.Errorf("invalid LEDGER_UTC_OFFSET_HOURS: %w", err)
	}

	threshold, err := strconv.Atoi(getEnv("DAYS_COUNT_WARN_THRESHOLD", "40"))
	if err != nil {
		return LedgerConfig{}, fmt.Errorf("invalid DAYS_COUNT_WARN_THRESHOLD: %w", err)
	}

	rate, err := decimal.NewFromString(getEnv("SAVINGS_ACCRUAL_RATE", "0.005"))
	if err != nil {
		return LedgerConfig{}, fmt.Errorf("invalid SAVINGS_ACCRUAL_RATE: %w", err)
	}

	return LedgerConfig{
		DayOffsetHours:         offset,
		DaysCountWarnThreshold: threshold,
		AccrualRate:            rate,
		AccrualCronSpec:        getEnv("ACCRUAL_CRON_SPEC", "0 1 1 * *"),
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "https://backoffice.smpc-microfin.ph"
	}
	return origins
}
