package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Port      string
	DBUrl     string
	JWTSecret string
	AppEnv    string

	// Escrow policy. These are policy parameters, not business constants:
	// operations can tune them without a deploy.
	PlatformCommission  decimal.Decimal
	HoldingPeriod       time.Duration
	RescheduleLeadTime  time.Duration
	RefundFullLeadTime  time.Duration
	RefundPartialLead   time.Duration
	RefundPartialPct    decimal.Decimal
	SchedulerPollPeriod time.Duration
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	commission, err := getEnvDecimal("PLATFORM_COMMISSION", "0.15")
	if err != nil {
		return nil, err
	}
	if commission.IsNegative() || commission.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("PLATFORM_COMMISSION must be in [0, 1)")
	}

	partialPct, err := getEnvDecimal("REFUND_PARTIAL_PERCENT", "50")
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:                getEnv("PORT", "8080"),
		DBUrl:               getEnv("DB_URL", ""),
		JWTSecret:           jwtSecret,
		AppEnv:              normalizeEnv(getEnv("APP_ENV", "production")),
		PlatformCommission:  commission,
		HoldingPeriod:       getEnvHours("HOLDING_PERIOD_HOURS", 72),
		RescheduleLeadTime:  getEnvHours("RESCHEDULE_LEAD_HOURS", 24),
		RefundFullLeadTime:  getEnvHours("REFUND_FULL_HOURS", 24),
		RefundPartialLead:   getEnvHours("REFUND_PARTIAL_HOURS", 6),
		RefundPartialPct:    partialPct,
		SchedulerPollPeriod: getEnvSeconds("SCHEDULER_POLL_SECONDS", 30),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvDecimal(key, fallback string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(getEnv(key, fallback))
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s must be a decimal number: %w", key, err)
	}
	return value, nil
}

func getEnvHours(key string, fallback int) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * time.Hour
}

func getEnvSeconds(key string, fallback int) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * time.Second
}

func getEnvInt(key string, fallback int) int {
	raw, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(raw) == "" {
		return fallback
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}
