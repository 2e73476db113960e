package testdb

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tarikstafford/reve-app-sub000/internal/ciutil"
	"github.com/tarikstafford/reve-app-sub000/internal/config"
	"github.com/tarikstafford/reve-app-sub000/internal/platform/postgres"
)

// TestTimeout defines a default timeout for test database operations.
const TestTimeout = 10 * time.Second

// IsIntegrationTestEnvironment returns true if a PostgreSQL URL is
// configured for integration tests.
func IsIntegrationTestEnvironment() bool {
	return ciutil.GetTestDatabaseURL(nil) != ""
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// Open creates a fresh SQLite database file under t.TempDir(), applies the
// embedded migrations and registers cleanup.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	db, err := postgres.Open(ctx, config.DatabaseConfig{
		Driver: postgres.DriverSQLite,
		URL:    filepath.Join(t.TempDir(), "reve.db"),
	})
	require.NoError(t, err, "failed to open sqlite test database")
	t.Cleanup(func() { _ = db.Close() })

	_, err = postgres.Migrate(ctx, db, postgres.DriverSQLite, DiscardLogger())
	require.NoError(t, err, "failed to migrate sqlite test database")
	return db
}

// OpenPostgres connects to the integration test database and applies
// migrations, skipping the test when no database is configured.
func OpenPostgres(t *testing.T) *sql.DB {
	t.Helper()
	if !IsIntegrationTestEnvironment() {
		t.Skip("no test database URL set - skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	db, err := postgres.Open(ctx, config.DatabaseConfig{
		Driver:       postgres.DriverPostgres,
		URL:          ciutil.GetTestDatabaseURL(DiscardLogger()),
		MaxOpenConns: 10,
		MaxIdleConns: 5,
	})
	require.NoError(t, err, "failed to open postgres test database")
	t.Cleanup(func() { _ = db.Close() })

	_, err = postgres.Migrate(ctx, db, postgres.DriverPostgres, DiscardLogger())
	require.NoError(t, err, "failed to migrate postgres test database")
	return db
}

// WithTx executes a test function within a transaction, automatically rolling back
// after the test completes. This ensures test isolation and prevents side effects.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.Begin()
	require.NoError(t, err, "Failed to begin transaction")

	defer func() {
		err := tx.Rollback()
		// sql.ErrTxDone is expected if tx is already committed or rolled back
		if err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("Warning: failed to rollback transaction: %v", err)
		}
	}()

	fn(t, tx)
}
