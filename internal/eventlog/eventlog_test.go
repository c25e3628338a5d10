// internal/eventlog/eventlog_test.go
package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB connects to a local PostgreSQL database and skips the test when
// none is reachable.
func setupTestDB(t testing.TB) *sql.DB {
	t.Helper()

	env := func(key, fallback string) string {
		if value := os.Getenv(key); value != "" {
			return value
		}
		return fallback
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		env("PGHOST", "localhost"),
		env("PGPORT", "5432"),
		env("PGUSER", "librecirc"),
		env("PGPASSWORD", "dev_password_change_in_prod"),
		env("PGDATABASE", "librecirc"),
	)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)

	if err := db.Ping(); err != nil {
		t.Skipf("skipping: could not connect to postgres: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS event_records (
			id BIGSERIAL PRIMARY KEY,
			aggregate_id UUID NOT NULL,
			aggregate_type TEXT NOT NULL,
			event_type TEXT NOT NULL,
			payload JSONB NOT NULL,
			version INT NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (aggregate_id, version)
		)
	`)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })
	return db
}

func record(eventType string, payload interface{}) Record {
	raw, _ := json.Marshal(payload)
	return Record{EventType: eventType, Payload: raw}
}

func TestAppendAndLoad(t *testing.T) {
	db := setupTestDB(t)
	log := New(db)
	ctx := context.Background()

	aggregateID := uuid.New()
	err := log.Append(ctx, aggregateID, "loan", 0, []Record{
		record("LoanCreated", map[string]string{"member": "m1"}),
		record("LoanReturned", map[string]string{"member": "m1"}),
	})
	require.NoError(t, err)

	records, err := log.Load(ctx, aggregateID, 0, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "LoanCreated", records[0].EventType)
	assert.Equal(t, 1, records[0].Version)
	assert.Equal(t, "LoanReturned", records[1].EventType)
	assert.Equal(t, 2, records[1].Version)

	version, err := log.CurrentVersion(ctx, aggregateID)
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func TestAppendVersionConflict(t *testing.T) {
	db := setupTestDB(t)
	log := New(db)
	ctx := context.Background()

	aggregateID := uuid.New()
	require.NoError(t, log.Append(ctx, aggregateID, "loan", 0, []Record{
		record("LoanCreated", map[string]string{}),
	}))

	// A stale writer expecting version 0 must be rejected.
	err := log.Append(ctx, aggregateID, "loan", 0, []Record{
		record("LoanReturned", map[string]string{}),
	})
	require.ErrorIs(t, err, ErrVersionConflict)

	version, err := log.CurrentVersion(ctx, aggregateID)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestAppendRejectsNegativeVersion(t *testing.T) {
	db := setupTestDB(t)
	log := New(db)

	err := log.Append(context.Background(), uuid.New(), "loan", -1, []Record{
		record("LoanCreated", map[string]string{}),
	})
	require.ErrorIs(t, err, ErrInvalidVersion)
}

func TestStream(t *testing.T) {
	db := setupTestDB(t)
	log := New(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, log.Append(ctx, uuid.New(), "reservation", 0, []Record{
			record("ReservationCreated", map[string]int{"n": i}),
		}))
	}

	records, err := log.Stream(ctx, 0, 100)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(records), 3)

	for i := 1; i < len(records); i++ {
		assert.Greater(t, records[i].ID, records[i-1].ID)
	}
}
