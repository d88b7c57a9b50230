package sqlite

import (
	"net/url"
	"testing"
)

// setupTestDB opens a shared in-memory database named after the test and
// applies all migrations.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	// Percent-encode the test name so it cannot be read as DSN parameters.
	db, err := NewMemoryDB(url.PathEscape(t.Name()))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if err := RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		t.Fatalf("run migrations: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	return db
}
