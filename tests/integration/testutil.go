// Package integration exercises the reconcile pipeline against a real
// PostgreSQL database. The suite is gated on TABLEKIT_TEST_DSN; without it
// every test skips, so plain `go test ./...` stays database-free.
package integration

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/tablekit/tablekit/internal/engine"
	"github.com/tablekit/tablekit/pkg/types"
)

// dsnEnv names the environment variable carrying the test database DSN.
const dsnEnv = "TABLEKIT_TEST_DSN"

var nameSeq atomic.Int64

// testDSN returns the configured DSN or skips the test.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set; skipping database integration test", dsnEnv)
	}
	return dsn
}

// uniqueName generates a table name that cannot collide across tests or
// concurrent CI runs sharing one database.
func uniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d_%d", prefix, time.Now().UnixNano()%1_000_000_000, nameSeq.Add(1))
}

// newTestEngine builds an engine against the test database with a throwaway
// state directory.
func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	cfg := types.Config{DSN: testDSN(t), StateDir: t.TempDir()}
	eng, err := engine.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	return eng
}

// connect opens a raw pool for fixture setup and assertions outside the
// engine.
func connect(t *testing.T) *pgxpool.Pool {
	t.Helper()
	pool, err := pgxpool.New(context.Background(), testDSN(t))
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

// dropTables removes test tables and their companion views at cleanup.
func dropTables(t *testing.T, pool *pgxpool.Pool, tables ...string) {
	t.Helper()
	t.Cleanup(func() {
		ctx := context.Background()
		for _, name := range tables {
			pool.Exec(ctx, fmt.Sprintf(`DROP VIEW IF EXISTS %q CASCADE`, name+"_resolved"))
			pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %q CASCADE`, name))
		}
	})
}

// countRows returns the row count of a table.
func countRows(t *testing.T, pool *pgxpool.Pool, table string) int {
	t.Helper()
	var n int
	err := pool.QueryRow(context.Background(),
		fmt.Sprintf(`SELECT count(*) FROM %q`, table)).Scan(&n)
	require.NoError(t, err)
	return n
}
