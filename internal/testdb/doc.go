// Package testdb provides utilities for database integration tests.
//
// Tests run inside a transaction that is rolled back when the test ends, so
// they can share one database and run in parallel:
//
//	func TestProjectStore(t *testing.T) {
//	    db := testdb.Open(t)
//	    testdb.InTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        owner := testdb.InsertUser(t, tx, 10)
//	        projects := postgres.NewPostgresProjectStore(tx, nil)
//	        ...
//	    })
//	}
//
// GetTestDBWithT skips the test when neither DATABASE_URL nor
// MIYOG_TEST_DB_URL is set, and applies the embedded migrations once per
// process.
package testdb
