package ciutil

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/tarikstafford/reve-app-sub000/internal/redact"
)

// Connection defaults applied to CI database URLs that leave them out.
const (
	StandardCIPort     = "5432"
	StandardCIDatabase = "reve_test"
	StandardCIOptions  = "sslmode=disable"
)

// GetTestDatabaseURL returns the PostgreSQL URL for integration tests, or
// "" when none is configured. Variables are checked in order:
// REVE_TEST_DATABASE_URL, DATABASE_URL, REVE_DATABASE_URL.
//
// In CI, a URL missing its port, database name or options gets the
// standard CI values.
func GetTestDatabaseURL(logger *slog.Logger) string {
	dbURL := GetEnvWithFallbacks([]string{EnvTestDatabaseURL, EnvDatabaseURL, EnvReveDatabaseURL}, "", logger)
	if dbURL == "" || !IsCI() {
		return dbURL
	}

	standardized, err := standardizeDatabaseURL(dbURL)
	if err != nil {
		if logger != nil {
			logger.Error("failed to standardize database URL", slog.String("error", err.Error()))
		}
		return dbURL
	}
	if standardized != dbURL && logger != nil {
		logger.Info("standardized database URL for CI environment",
			slog.String("url", redact.URL(standardized)))
	}
	return standardized
}

func standardizeDatabaseURL(dbURL string) (string, error) {
	parsed, err := url.Parse(dbURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse database URL: %w", err)
	}
	if parsed.Scheme != "postgres" && parsed.Scheme != "postgresql" {
		return dbURL, nil
	}

	host := parsed.Hostname()
	if parsed.Port() == "" && (host == "" || host == "localhost" || host == "127.0.0.1") {
		if host == "" {
			host = "localhost"
		}
		parsed.Host = host + ":" + StandardCIPort
	}
	if strings.TrimPrefix(parsed.Path, "/") == "" {
		parsed.Path = "/" + StandardCIDatabase
	}
	if parsed.RawQuery == "" {
		parsed.RawQuery = StandardCIOptions
	}
	return parsed.String(), nil
}
