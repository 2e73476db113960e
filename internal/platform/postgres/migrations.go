package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

// Driver names registered with database/sql.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// slogGooseLogger adapts slog to goose's Logger interface.
type slogGooseLogger struct {
	logger *slog.Logger
}

func (l *slogGooseLogger) Printf(format string, v ...any) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *slogGooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// MigrationFS returns the embedded migrations for the given driver.
func MigrationFS(driver string) (fs.FS, goose.Dialect, error) {
	var (
		dir     string
		dialect goose.Dialect
	)
	switch driver {
	case DriverPostgres:
		dir, dialect = "migrations/postgres", goose.DialectPostgres
	case DriverSQLite:
		dir, dialect = "migrations/sqlite", goose.DialectSQLite3
	default:
		return nil, "", fmt.Errorf("unsupported database driver %q", driver)
	}

	sub, err := fs.Sub(migrationFiles, dir)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	return sub, dialect, nil
}

// NewMigrator builds a goose provider over the embedded migrations.
// The provider does not own db; do not call its Close method.
func NewMigrator(db *sql.DB, driver string, logger *slog.Logger) (*goose.Provider, error) {
	fsys, dialect, err := MigrationFS(driver)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	provider, err := goose.NewProvider(dialect, db, fsys,
		goose.WithLogger(&slogGooseLogger{logger: logger.With(slog.String("component", "migrations"))}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return provider, nil
}

// Migrate applies all pending migrations and returns how many ran.
func Migrate(ctx context.Context, db *sql.DB, driver string, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	provider, err := NewMigrator(db, driver, logger)
	if err != nil {
		return 0, err
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return len(results), fmt.Errorf("failed to apply migrations: %w", err)
	}

	for _, r := range results {
		logger.Info("applied migration",
			slog.Int64("version", r.Source.Version),
			slog.Duration("duration", r.Duration))
	}
	return len(results), nil
}
