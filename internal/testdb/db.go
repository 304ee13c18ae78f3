package testdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/miyog/miyog-engine/internal/platform/postgres"
	"github.com/miyog/miyog-engine/internal/store"
	"github.com/stretchr/testify/require"
)

// Timeout bounds connection checks and migrations.
const Timeout = 5 * time.Second

// Environment variables naming the integration database, in priority order.
var urlVars = []string{"DATABASE_URL", "MIYOG_TEST_DB_URL"}

var (
	migrateOnce sync.Once
	migrateErr  error
)

// URL returns the first configured integration database URL.
func URL() string {
	for _, name := range urlVars {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// Available reports whether an integration database is configured.
func Available() bool { return URL() != "" }

// Open connects to the integration database, applying migrations on first
// use. The test is skipped when no database is configured.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	dsn := URL()
	if dsn == "" {
		t.Skipf("none of %v set; skipping integration test", urlVars)
	}

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err, "open database")
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "ping database")

	migrateOnce.Do(func() {
		migrateErr = postgres.Migrate(context.Background(), db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	})
	require.NoError(t, migrateErr, "apply migrations")
	return db
}

// InTx runs fn inside a transaction that is always rolled back, so tests
// can share one database without cleaning up.
func InTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err, "begin transaction")
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("rollback: %v", err)
		}
	}()
	fn(t, tx)
}

// InsertUser creates a user holding credits and returns its ID.
func InsertUser(t *testing.T, db store.DBTX, credits int) uuid.UUID {
	t.Helper()

	id := uuid.New()
	now := time.Now().UTC()
	_, err := db.ExecContext(context.Background(),
		`INSERT INTO users (id, email, credits, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, fmt.Sprintf("%s@test.miyog.com", id), credits, now, now)
	require.NoError(t, err, "insert user")
	return id
}
