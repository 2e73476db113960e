// Package postgres provides SQL implementations of the persistence
// interfaces defined in the internal/store package.
//
// Queries use $n placeholders and portable types so the same stores run on
// PostgreSQL (pgx stdlib driver) in production and on SQLite
// (modernc.org/sqlite) for local development and tests. Schema migrations
// for both dialects are embedded and applied with goose.
package postgres
