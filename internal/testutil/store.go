package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/nhle/replydeck/internal/store"
)

// PostgresURLEnv names the variable that enables tests against a real
// Postgres server.
const PostgresURLEnv = "REPLYDECK_TEST_POSTGRES_URL"

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// NewPostgresStore connects to the database named by PostgresURLEnv and
// skips the test when it is unset. Tables are emptied before use.
func NewPostgresStore(t *testing.T) *store.PostgresStore {
	t.Helper()

	dsn := os.Getenv(PostgresURLEnv)
	if dsn == "" {
		t.Skipf("%s not set", PostgresURLEnv)
	}

	ctx := context.Background()
	s, err := store.NewPostgresStore(ctx, dsn)
	if err != nil {
		t.Fatalf("creating postgres store: %v", err)
	}
	if err := s.Truncate(ctx); err != nil {
		s.Close()
		t.Fatalf("truncating postgres store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing postgres store: %v", err)
		}
	})

	return s
}
