// Package testdb provides database utilities for tests.
//
// Open returns a migrated SQLite database in the test's temp directory, so
// store and service tests run real SQL without external services. When
// REVE_TEST_DATABASE_URL or DATABASE_URL is set (see ciutil), OpenPostgres
// returns a migrated PostgreSQL connection
// and WithTx runs a test inside a transaction that is always rolled back.
//
//	func TestQueueStore(t *testing.T) {
//	    t.Parallel()
//	    db := testdb.Open(t)
//	    queue := postgres.NewPostgresQueueStore(db, nil)
//	    ...
//	}
package testdb
