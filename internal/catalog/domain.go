// internal/catalog/domain.go
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// ItemType tags an item's category. The loan period and default fine rate
// depend on it.
type ItemType string

const (
	ItemTypeBook ItemType = "BOOK"
	ItemTypeCD   ItemType = "CD"
)

// Valid reports whether t is one of the closed set of item types.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeBook, ItemTypeCD:
		return true
	}
	return false
}

// Default daily fine rates per category, applied when an item is added
// without an explicit rate.
const (
	DefaultBookFineRate = 0.50
	DefaultCDFineRate   = 1.00
)

// Item represents a book or CD held by the library.
//
// Invariant: 0 <= Available <= TotalCopies. Available is mutated only through
// UpdateItemCopies (borrow and return go through that path); TotalCopies only
// through catalog management.
type Item struct {
	ID            uuid.UUID `json:"id"`
	Type          ItemType  `json:"type"`
	ISBN          string    `json:"isbn,omitempty"`
	Title         string    `json:"title"`
	Creator       string    `json:"creator"`
	TotalCopies   int       `json:"total_copies"`
	Available     int       `json:"available"`
	DailyFineRate float64   `json:"daily_fine_rate"`
	Status        string    `json:"status"`
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ItemAddedEvent is recorded when a new item enters the catalog.
type ItemAddedEvent struct {
	ID            uuid.UUID `json:"id"`
	Type          ItemType  `json:"type"`
	ISBN          string    `json:"isbn,omitempty"`
	Title         string    `json:"title"`
	Creator       string    `json:"creator"`
	TotalCopies   int       `json:"total_copies"`
	DailyFineRate float64   `json:"daily_fine_rate"`
}

// ItemCopiesUpdatedEvent is recorded when the copy counters change.
type ItemCopiesUpdatedEvent struct {
	ID           uuid.UUID `json:"id"`
	NewTotal     int       `json:"new_total"`
	NewAvailable int       `json:"new_available"`
}

// ItemRetiredEvent is recorded when an item is retired from the catalog.
type ItemRetiredEvent struct {
	ID uuid.UUID `json:"id"`
}
