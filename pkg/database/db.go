package database

import (
	"fmt"
	"log"
	"os"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the database named by databaseURL. Postgres URLs and DSNs use
// the postgres driver; anything else is treated as a SQLite file path. An empty
// URL falls back to the DB_* environment variables for postgres.
func Connect(databaseURL string, debug bool) (*gorm.DB, error) {
	cfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}
	if debug {
		cfg.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(Dialector(databaseURL), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if isSQLite(databaseURL) {
		// SQLite allows a single writer.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	log.Printf("database connected (%s)", driverName(databaseURL))
	return db, nil
}

func Dialector(databaseURL string) gorm.Dialector {
	if databaseURL == "" {
		return postgres.Open(envDSN())
	}
	if isSQLite(databaseURL) {
		return sqlite.Open(databaseURL)
	}
	return postgres.Open(databaseURL)
}

func isSQLite(databaseURL string) bool {
	if databaseURL == "" {
		return false
	}
	return !strings.HasPrefix(databaseURL, "postgres") && !strings.Contains(databaseURL, "host=")
}

func driverName(databaseURL string) string {
	if isSQLite(databaseURL) {
		return "sqlite"
	}
	return "postgres"
}

func envDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		valueOrDefault("DB_HOST", "localhost"),
		valueOrDefault("DB_USER", "postgres"),
		os.Getenv("DB_PASS"),
		valueOrDefault("DB_NAME", "volunteer_goals"),
		valueOrDefault("DB_PORT", "5432"),
	)
}

func valueOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}
