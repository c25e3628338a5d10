// internal/membership/store.go
package membership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// MemberStore is the persistence port for members and their credentials.
// Find methods return (nil, nil) when no row matches.
type MemberStore interface {
	Save(ctx context.Context, member *Member, credential *Credential) error
	FindByID(ctx context.Context, id uuid.UUID) (*Member, error)
	FindByEmail(ctx context.Context, email string) (*Member, error)
	FindCredential(ctx context.Context, memberID uuid.UUID) (*Credential, error)
	SetStatus(ctx context.Context, id uuid.UUID, status MemberStatus, expectedVersion int) error
}

type postgresMemberStore struct {
	db *sql.DB
}

// NewPostgresMemberStore returns a MemberStore backed by the members and
// credentials read models.
func NewPostgresMemberStore(db *sql.DB) MemberStore {
	return &postgresMemberStore{db: db}
}

func (s *postgresMemberStore) Save(ctx context.Context, member *Member, credential *Credential) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	memberQuery := `
		INSERT INTO members (id, email, name, status, registered_at, expires_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = tx.ExecContext(ctx, memberQuery,
		member.ID, member.Email, member.Name, member.Status,
		member.RegisteredAt, member.ExpiresAt, member.Version,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert member: %w", err)
	}

	credQuery := `
		INSERT INTO credentials (member_id, password_hash, salt)
		VALUES ($1, $2, $3)
	`
	_, err = tx.ExecContext(ctx, credQuery, credential.MemberID, credential.PasswordHash, credential.Salt)
	if err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}

	return tx.Commit()
}

func (s *postgresMemberStore) FindByID(ctx context.Context, id uuid.UUID) (*Member, error) {
	return s.findOne(ctx, `
		SELECT id, email, name, status, registered_at, expires_at, version
		FROM members
		WHERE id = $1
	`, id)
}

func (s *postgresMemberStore) FindByEmail(ctx context.Context, email string) (*Member, error) {
	return s.findOne(ctx, `
		SELECT id, email, name, status, registered_at, expires_at, version
		FROM members
		WHERE email = $1
	`, email)
}

func (s *postgresMemberStore) findOne(ctx context.Context, query string, arg interface{}) (*Member, error) {
	member := &Member{}
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&member.ID,
		&member.Email,
		&member.Name,
		&member.Status,
		&member.RegisteredAt,
		&member.ExpiresAt,
		&member.Version,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query member: %w", err)
	}
	return member, nil
}

func (s *postgresMemberStore) FindCredential(ctx context.Context, memberID uuid.UUID) (*Credential, error) {
	query := `
		SELECT member_id, password_hash, salt
		FROM credentials
		WHERE member_id = $1
	`
	credential := &Credential{}
	err := s.db.QueryRowContext(ctx, query, memberID).Scan(
		&credential.MemberID,
		&credential.PasswordHash,
		&credential.Salt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query credential: %w", err)
	}
	return credential, nil
}

func (s *postgresMemberStore) SetStatus(ctx context.Context, id uuid.UUID, status MemberStatus, expectedVersion int) error {
	query := `
		UPDATE members
		SET status = $1, version = version + 1
		WHERE id = $2 AND version = $3
	`
	result, err := s.db.ExecContext(ctx, query, status, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("update member status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("update member status: no row for %s at version %d", id, expectedVersion)
	}
	return nil
}
