// internal/eventlog/eventlog.go
package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrVersionConflict = errors.New("version conflict: aggregate was modified concurrently")
	ErrInvalidVersion  = errors.New("invalid version number")
)

// Record is one domain event as stored in the append-only log. Every state
// change in the circulation system (loan created, item returned, fine issued,
// reservation transition) is recorded here next to the read-model write.
type Record struct {
	ID            int64           `json:"id"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	Version       int             `json:"version"`
	RecordedAt    time.Time       `json:"recorded_at"`
}

// Log is a Postgres-backed append-only event log with optimistic
// per-aggregate version checks.
type Log struct {
	db     *sql.DB
	tracer trace.Tracer
}

func New(db *sql.DB) *Log {
	return &Log{
		db:     db,
		tracer: otel.Tracer("librecirc/eventlog"),
	}
}

// Append atomically appends records for one aggregate. expectedVersion must
// match the highest version already stored for the aggregate, otherwise
// ErrVersionConflict is returned and nothing is written.
func (l *Log) Append(ctx context.Context, aggregateID uuid.UUID, aggregateType string, expectedVersion int, records []Record) error {
	if expectedVersion < 0 {
		return ErrInvalidVersion
	}

	ctx, span := l.tracer.Start(ctx, "eventlog.append",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
			attribute.String("aggregate.type", aggregateType),
			attribute.Int("expected.version", expectedVersion),
			attribute.Int("record.count", len(records)),
		),
	)
	defer span.End()

	tx, err := l.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var currentVersion int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0)
		FROM event_records
		WHERE aggregate_id = $1
	`, aggregateID).Scan(&currentVersion)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("query current version: %w", err)
	}

	if currentVersion != expectedVersion {
		span.SetAttributes(
			attribute.Int("actual.version", currentVersion),
			attribute.Bool("conflict.detected", true),
		)
		return ErrVersionConflict
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO event_records (aggregate_id, aggregate_type, event_type, payload, version, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, record := range records {
		version := expectedVersion + i + 1

		var recordID int64
		err = stmt.QueryRowContext(
			ctx,
			aggregateID,
			aggregateType,
			record.EventType,
			record.Payload,
			version,
			time.Now().UTC(),
		).Scan(&recordID)
		if err != nil {
			// Unique constraint violation means another writer won the race.
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				return ErrVersionConflict
			}
			return fmt.Errorf("insert record %d: %w", i, err)
		}

		span.AddEvent("record.appended", trace.WithAttributes(
			attribute.Int64("record.id", recordID),
			attribute.Int("record.version", version),
			attribute.String("record.type", record.EventType),
		))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Load retrieves the records for an aggregate in version order. toVersion <= 0
// means no upper bound.
func (l *Log) Load(ctx context.Context, aggregateID uuid.UUID, fromVersion, toVersion int) ([]Record, error) {
	ctx, span := l.tracer.Start(ctx, "eventlog.load",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
			attribute.Int("from.version", fromVersion),
			attribute.Int("to.version", toVersion),
		),
	)
	defer span.End()

	query := `
		SELECT id, aggregate_id, aggregate_type, event_type, payload, version, recorded_at
		FROM event_records
		WHERE aggregate_id = $1
		AND version >= $2
	`
	args := []interface{}{aggregateID, fromVersion}

	if toVersion > 0 {
		query += " AND version <= $3"
		args = append(args, toVersion)
	}
	query += " ORDER BY version ASC"

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var record Record
		err := rows.Scan(
			&record.ID,
			&record.AggregateID,
			&record.AggregateType,
			&record.EventType,
			&record.Payload,
			&record.Version,
			&record.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	span.SetAttributes(attribute.Int("records.loaded", len(records)))
	return records, nil
}

// CurrentVersion returns the latest stored version for an aggregate, 0 when
// the aggregate has no records yet.
func (l *Log) CurrentVersion(ctx context.Context, aggregateID uuid.UUID) (int, error) {
	ctx, span := l.tracer.Start(ctx, "eventlog.current_version",
		trace.WithAttributes(attribute.String("aggregate.id", aggregateID.String())),
	)
	defer span.End()

	var version int
	err := l.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0)
		FROM event_records
		WHERE aggregate_id = $1
	`, aggregateID).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("query version: %w", err)
	}

	span.SetAttributes(attribute.Int("current.version", version))
	return version, nil
}

// Stream returns a batch of records after the given log position, oldest
// first.
func (l *Log) Stream(ctx context.Context, fromID int64, batchSize int) ([]Record, error) {
	ctx, span := l.tracer.Start(ctx, "eventlog.stream",
		trace.WithAttributes(
			attribute.Int64("from.id", fromID),
			attribute.Int("batch.size", batchSize),
		),
	)
	defer span.End()

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, aggregate_id, aggregate_type, event_type, payload, version, recorded_at
		FROM event_records
		WHERE id > $1
		ORDER BY id ASC
		LIMIT $2
	`, fromID, batchSize)
	if err != nil {
		return nil, fmt.Errorf("query record stream: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var record Record
		err := rows.Scan(
			&record.ID,
			&record.AggregateID,
			&record.AggregateType,
			&record.EventType,
			&record.Payload,
			&record.Version,
			&record.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	span.SetAttributes(attribute.Int("records.streamed", len(records)))
	return records, nil
}
