// Package testdb provides helpers for tests that run against a real
// PostgreSQL database.
//
// The database URL is resolved from the environment (see URL). Tests that
// call Open are skipped when no URL is configured, so the integration suites
// stay green on machines without a database:
//
//	func TestSomething(t *testing.T) {
//		db := testdb.Open(t)
//		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//			// changes made through tx are rolled back
//		})
//	}
package testdb
