// Package ciutil detects the execution environment (CI or local) and
// resolves the PostgreSQL URL used by integration tests.
//
// Integration tests against PostgreSQL run only when a database URL is
// available; everything else runs on SQLite.
package ciutil
