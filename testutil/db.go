// Package testutil provides shared helpers for integration tests.
// Helpers in this package skip automatically when their environment variable
// (TEST_DATABASE_URL, TEST_REDIS_URL) is not set, so unit tests run without
// any backing services.
package testutil

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"github.com/redis/go-redis/v9"
)

// WaitTimeout bounds how long integration tests wait for change notifications.
const WaitTimeout = 5 * time.Second

// NewPool opens a *pgxpool.Pool connected to TEST_DATABASE_URL.
// The pool is closed when the test finishes.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := requireEnv(t, "TEST_DATABASE_URL")

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("testutil.NewPool: open pool: %v", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		t.Fatalf("testutil.NewPool: ping: %v", err)
	}

	t.Cleanup(pool.Close)
	return pool
}

// NewSQLDB opens a *sql.DB on TEST_DATABASE_URL through the pgx stdlib driver.
// goose needs database/sql, not a pgx pool.
func NewSQLDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := requireEnv(t, "TEST_DATABASE_URL")

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("testutil.NewSQLDB: open: %v", err)
	}

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		t.Fatalf("testutil.NewSQLDB: ping: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// MustOpenSQLDB opens a *sql.DB for the given DSN and panics on any error.
// Use this in TestMain functions where no *testing.T is available.
// Callers are responsible for closing the returned *sql.DB.
func MustOpenSQLDB(dsn string) *sql.DB {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		panic("testutil.MustOpenSQLDB: open: " + err.Error())
	}
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		panic("testutil.MustOpenSQLDB: ping: " + err.Error())
	}
	return db
}

// NewRedis returns a client for TEST_REDIS_URL (redis://host:port/db).
// The client is closed when the test finishes.
func NewRedis(t *testing.T) *redis.Client {
	t.Helper()

	opts, err := redis.ParseURL(requireEnv(t, "TEST_REDIS_URL"))
	if err != nil {
		t.Fatalf("testutil.NewRedis: parse url: %v", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		t.Fatalf("testutil.NewRedis: ping: %v", err)
	}

	t.Cleanup(func() { client.Close() })
	return client
}

// Suffix returns a short random upper-case token for building IDs and key
// prefixes that do not collide across test runs sharing one backend.
func Suffix() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func requireEnv(t *testing.T, key string) string {
	t.Helper()
	v := os.Getenv(key)
	if v == "" {
		t.Skipf("%s not set; skipping integration test", key)
	}
	return v
}
