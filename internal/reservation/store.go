// internal/reservation/store.go
package reservation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store is the persistence port for reservations. FindByID returns (nil, nil)
// when no reservation matches. Active queues come back ordered by
// (reserved_at, id) ascending.
type Store interface {
	Save(ctx context.Context, res *Reservation) error
	FindByID(ctx context.Context, id uuid.UUID) (*Reservation, error)
	FindByMemberID(ctx context.Context, memberID uuid.UUID) ([]*Reservation, error)
	FindActiveByMemberID(ctx context.Context, memberID uuid.UUID) ([]*Reservation, error)
	FindActiveByItemID(ctx context.Context, itemID uuid.UUID) ([]*Reservation, error)
	FindExpired(ctx context.Context, before time.Time) ([]*Reservation, error)
	// Transition moves a reservation from ACTIVE to the given terminal
	// status. Returns ErrNotActive when the row is no longer ACTIVE, so a
	// terminal state can never be left.
	Transition(ctx context.Context, id uuid.UUID, to Status) error
}

const reservationColumns = "id, member_id, item_id, reserved_at, expires_at, status"

type postgresStore struct {
	db *sql.DB
}

// NewPostgresStore returns a Store backed by the reservations read model.
func NewPostgresStore(db *sql.DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) Save(ctx context.Context, res *Reservation) error {
	query := `
		INSERT INTO reservations (id, member_id, item_id, reserved_at, expires_at, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		res.ID, res.MemberID, res.ItemID, res.ReservedAt, res.ExpiresAt, res.Status,
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

func (s *postgresStore) FindByID(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
	res := &Reservation{}
	err := row.Scan(&res.ID, &res.MemberID, &res.ItemID, &res.ReservedAt, &res.ExpiresAt, &res.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query reservation: %w", err)
	}
	return res, nil
}

func (s *postgresStore) FindByMemberID(ctx context.Context, memberID uuid.UUID) ([]*Reservation, error) {
	return s.query(ctx, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE member_id = $1
		ORDER BY reserved_at, id
	`, memberID)
}

func (s *postgresStore) FindActiveByMemberID(ctx context.Context, memberID uuid.UUID) ([]*Reservation, error) {
	return s.query(ctx, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE member_id = $1 AND status = 'ACTIVE'
		ORDER BY reserved_at, id
	`, memberID)
}

func (s *postgresStore) FindActiveByItemID(ctx context.Context, itemID uuid.UUID) ([]*Reservation, error) {
	return s.query(ctx, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE item_id = $1 AND status = 'ACTIVE'
		ORDER BY reserved_at, id
	`, itemID)
}

func (s *postgresStore) FindExpired(ctx context.Context, before time.Time) ([]*Reservation, error) {
	return s.query(ctx, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE status = 'ACTIVE' AND expires_at < $1
		ORDER BY reserved_at, id
	`, before)
}

func (s *postgresStore) Transition(ctx context.Context, id uuid.UUID, to Status) error {
	if !to.Terminal() {
		return fmt.Errorf("invalid transition target %q", to)
	}

	query := `
		UPDATE reservations
		SET status = $1
		WHERE id = $2 AND status = 'ACTIVE'
	`
	result, err := s.db.ExecContext(ctx, query, to, id)
	if err != nil {
		return fmt.Errorf("transition reservation: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotActive
	}
	return nil
}

func (s *postgresStore) query(ctx context.Context, query string, args ...interface{}) ([]*Reservation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
	}
	defer rows.Close()

	var reservations []*Reservation
	for rows.Next() {
		res := &Reservation{}
		if err := rows.Scan(&res.ID, &res.MemberID, &res.ItemID, &res.ReservedAt, &res.ExpiresAt, &res.Status); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		reservations = append(reservations, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reservations: %w", err)
	}
	return reservations, nil
}
