// internal/catalog/service.go
package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrItemNotFound = errors.New("item not found")
	ErrInvalidItem  = errors.New("invalid item")
)

// AddItemParams carries the fields for a new catalog item. DailyFineRate of
// zero means "use the default for the item type".
type AddItemParams struct {
	Type          ItemType
	ISBN          string
	Title         string
	Creator       string
	TotalCopies   int
	DailyFineRate float64
}

// Service defines the interface for the catalog service.
type Service interface {
	AddItem(ctx context.Context, params AddItemParams) (*Item, error)
	GetItem(ctx context.Context, id uuid.UUID) (*Item, error)
	UpdateItemCopies(ctx context.Context, id uuid.UUID, newTotal, newAvailable int) error
	RetireItem(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string) ([]*Item, error)
}
