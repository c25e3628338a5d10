// internal/catalog/store.go
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrStaleVersion is returned when a versioned update lost a race with
// another writer.
var ErrStaleVersion = errors.New("stale item version")

// ItemStore is the persistence port for catalog items. FindByID returns
// (nil, nil) when the item does not exist; errors are reserved for
// infrastructure failures.
type ItemStore interface {
	Save(ctx context.Context, item *Item) error
	FindByID(ctx context.Context, id uuid.UUID) (*Item, error)
	UpdateCopies(ctx context.Context, id uuid.UUID, newTotal, newAvailable, expectedVersion int) error
	Retire(ctx context.Context, id uuid.UUID, expectedVersion int) error
	Search(ctx context.Context, query string) ([]*Item, error)
}

type postgresItemStore struct {
	db *sql.DB
}

// NewPostgresItemStore returns an ItemStore backed by the items read model.
func NewPostgresItemStore(db *sql.DB) ItemStore {
	return &postgresItemStore{db: db}
}

func (s *postgresItemStore) Save(ctx context.Context, item *Item) error {
	query := `
		INSERT INTO items (id, item_type, isbn, title, creator, total_copies, available, daily_fine_rate, status, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		item.ID, item.Type, item.ISBN, item.Title, item.Creator,
		item.TotalCopies, item.Available, item.DailyFineRate, item.Status, item.Version,
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (s *postgresItemStore) FindByID(ctx context.Context, id uuid.UUID) (*Item, error) {
	query := `
		SELECT id, item_type, isbn, title, creator, total_copies, available, daily_fine_rate, status, version, created_at, updated_at
		FROM items
		WHERE id = $1
	`
	item := &Item{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID,
		&item.Type,
		&item.ISBN,
		&item.Title,
		&item.Creator,
		&item.TotalCopies,
		&item.Available,
		&item.DailyFineRate,
		&item.Status,
		&item.Version,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}
	return item, nil
}

func (s *postgresItemStore) UpdateCopies(ctx context.Context, id uuid.UUID, newTotal, newAvailable, expectedVersion int) error {
	query := `
		UPDATE items
		SET total_copies = $1, available = $2, version = version + 1, updated_at = NOW()
		WHERE id = $3 AND version = $4
	`
	result, err := s.db.ExecContext(ctx, query, newTotal, newAvailable, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("update item copies: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrStaleVersion
	}
	return nil
}

func (s *postgresItemStore) Retire(ctx context.Context, id uuid.UUID, expectedVersion int) error {
	query := `
		UPDATE items
		SET status = 'retired', version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
	`
	result, err := s.db.ExecContext(ctx, query, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("retire item: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrStaleVersion
	}
	return nil
}

func (s *postgresItemStore) Search(ctx context.Context, query string) ([]*Item, error) {
	dbQuery := `
		SELECT id, item_type, isbn, title, creator, total_copies, available, daily_fine_rate, status, version, created_at, updated_at
		FROM items
		WHERE to_tsvector('english', title) @@ plainto_tsquery('english', $1)
		OR to_tsvector('english', creator) @@ plainto_tsquery('english', $1)
		LIMIT 10
	`
	rows, err := s.db.QueryContext(ctx, dbQuery, query)
	if err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item := &Item{}
		if err := rows.Scan(
			&item.ID, &item.Type, &item.ISBN, &item.Title, &item.Creator,
			&item.TotalCopies, &item.Available, &item.DailyFineRate,
			&item.Status, &item.Version, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}
