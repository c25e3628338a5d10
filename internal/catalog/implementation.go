// internal/catalog/implementation.go
package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"librecirc/internal/eventlog"
)

// eventAppender is the slice of the event log the catalog service needs.
type eventAppender interface {
	Append(ctx context.Context, aggregateID uuid.UUID, aggregateType string, expectedVersion int, records []eventlog.Record) error
}

// service implements the Service interface.
type service struct {
	store  ItemStore
	events eventAppender
}

// NewService creates a new catalog service instance.
func NewService(store ItemStore, events eventAppender) Service {
	return &service{store: store, events: events}
}

// AddItem creates a new item in the catalog.
func (s *service) AddItem(ctx context.Context, params AddItemParams) (*Item, error) {
	if !params.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown item type %q", ErrInvalidItem, params.Type)
	}
	if params.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidItem)
	}
	if params.TotalCopies < 0 {
		return nil, fmt.Errorf("%w: total copies must not be negative", ErrInvalidItem)
	}

	rate := params.DailyFineRate
	if rate == 0 {
		switch params.Type {
		case ItemTypeCD:
			rate = DefaultCDFineRate
		default:
			rate = DefaultBookFineRate
		}
	}
	if rate < 0 {
		return nil, fmt.Errorf("%w: daily fine rate must not be negative", ErrInvalidItem)
	}

	id := uuid.New()
	eventData := ItemAddedEvent{
		ID:            id,
		Type:          params.Type,
		ISBN:          params.ISBN,
		Title:         params.Title,
		Creator:       params.Creator,
		TotalCopies:   params.TotalCopies,
		DailyFineRate: rate,
	}
	payload, err := json.Marshal(eventData)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}

	record := eventlog.Record{EventType: "ItemAdded", Payload: payload}
	if err := s.events.Append(ctx, id, "item", 0, []eventlog.Record{record}); err != nil {
		return nil, fmt.Errorf("append event: %w", err)
	}

	item := &Item{
		ID:            id,
		Type:          params.Type,
		ISBN:          params.ISBN,
		Title:         params.Title,
		Creator:       params.Creator,
		TotalCopies:   params.TotalCopies,
		Available:     params.TotalCopies,
		DailyFineRate: rate,
		Status:        "active",
		Version:       1,
	}
	if err := s.store.Save(ctx, item); err != nil {
		return nil, fmt.Errorf("update read model: %w", err)
	}

	return item, nil
}

// GetItem retrieves an item from the catalog by its ID.
func (s *service) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	item, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	return item, nil
}

// UpdateItemCopies updates the copy counters for an item. The availability
// invariant 0 <= available <= total is enforced here.
func (s *service) UpdateItemCopies(ctx context.Context, id uuid.UUID, newTotal, newAvailable int) error {
	if newAvailable < 0 || newAvailable > newTotal {
		return fmt.Errorf("%w: available %d out of range [0, %d]", ErrInvalidItem, newAvailable, newTotal)
	}

	item, err := s.GetItem(ctx, id)
	if err != nil {
		return err
	}

	eventData := ItemCopiesUpdatedEvent{ID: id, NewTotal: newTotal, NewAvailable: newAvailable}
	payload, err := json.Marshal(eventData)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	record := eventlog.Record{EventType: "ItemCopiesUpdated", Payload: payload}
	if err := s.events.Append(ctx, id, "item", item.Version, []eventlog.Record{record}); err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	return s.store.UpdateCopies(ctx, id, newTotal, newAvailable, item.Version)
}

// RetireItem marks an item as retired. Copies stay on record so open loans
// against the item remain resolvable.
func (s *service) RetireItem(ctx context.Context, id uuid.UUID) error {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(ItemRetiredEvent{ID: id})
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	record := eventlog.Record{EventType: "ItemRetired", Payload: payload}
	if err := s.events.Append(ctx, id, "item", item.Version, []eventlog.Record{record}); err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	return s.store.Retire(ctx, id, item.Version)
}

// Search finds items in the catalog.
func (s *service) Search(ctx context.Context, query string) ([]*Item, error) {
	return s.store.Search(ctx, query)
}
