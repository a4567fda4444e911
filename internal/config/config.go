package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string

	DatabaseURL string
	RedisURL    string

	MeiliSearchHost string
	MeiliMasterKey  string

	JWTSecret string
	JWTTTL    time.Duration

	WeeklyProcessorSchedule string

	LoginRateLimitAttempts int
	LoginRateLimitWindow   time.Duration

	AdminEmail    string
	AdminPassword string
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		MeiliSearchHost: os.Getenv("MEILISEARCH_HOST"),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),

		JWTSecret: getEnv("JWT_SECRET", "change-me"),

		WeeklyProcessorSchedule: getEnv("WEEKLY_PROCESSOR_SCHEDULE", "0 0 * * 0"),

		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@volunteer.org"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "admin12345"),
	}

	var err error
	cfg.JWTTTL, err = parseDuration(getEnv("JWT_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	cfg.LoginRateLimitWindow, err = parseDuration(getEnv("LOGIN_RATE_LIMIT_WINDOW", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOGIN_RATE_LIMIT_WINDOW: %w", err)
	}
	cfg.LoginRateLimitAttempts, err = strconv.Atoi(getEnv("LOGIN_RATE_LIMIT_ATTEMPTS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOGIN_RATE_LIMIT_ATTEMPTS: %w", err)
	}

	if _, err := cron.ParseStandard(cfg.WeeklyProcessorSchedule); err != nil {
		return nil, fmt.Errorf("invalid WEEKLY_PROCESSOR_SCHEDULE: %w", err)
	}

	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
