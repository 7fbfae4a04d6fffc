// Package config loads service configuration from the environment, with
// an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the service configuration.
type Config struct {
	// Port is the HTTP listen port.
	Port string

	// DatabaseURL is the postgres DSN. When empty, the in-memory store
	// is used (development only).
	DatabaseURL string

	// KafkaBrokers enables the Kafka audit event publisher when set.
	KafkaBrokers []string

	// ArchiveBucket enables async report archival to GCS when set.
	ArchiveBucket string

	// ReportLocation is the time zone report day bounds are taken in.
	ReportLocation *time.Location

	// ReportCurrency is the ISO currency code for PDF amount display.
	ReportCurrency string
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first if present.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getenv("PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		ArchiveBucket:  os.Getenv("ARCHIVE_BUCKET"),
		ReportCurrency: getenv("REPORT_CURRENCY", "USD"),
		ReportLocation: time.UTC,
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	if tz := os.Getenv("REPORT_TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("load REPORT_TIMEZONE %q: %w", tz, err)
		}
		cfg.ReportLocation = loc
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
