// internal/catalog/implementation_test.go
package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librecirc/internal/eventlog"
)

type memItemStore struct {
	items map[uuid.UUID]*Item
}

func newMemItemStore() *memItemStore {
	return &memItemStore{items: make(map[uuid.UUID]*Item)}
}

func (s *memItemStore) Save(_ context.Context, item *Item) error {
	copied := *item
	s.items[item.ID] = &copied
	return nil
}

func (s *memItemStore) FindByID(_ context.Context, id uuid.UUID) (*Item, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (s *memItemStore) UpdateCopies(_ context.Context, id uuid.UUID, newTotal, newAvailable, expectedVersion int) error {
	item, ok := s.items[id]
	if !ok || item.Version != expectedVersion {
		return ErrStaleVersion
	}
	item.TotalCopies = newTotal
	item.Available = newAvailable
	item.Version++
	return nil
}

func (s *memItemStore) Retire(_ context.Context, id uuid.UUID, expectedVersion int) error {
	item, ok := s.items[id]
	if !ok || item.Version != expectedVersion {
		return ErrStaleVersion
	}
	item.Status = "retired"
	item.Version++
	return nil
}

func (s *memItemStore) Search(_ context.Context, query string) ([]*Item, error) {
	var out []*Item
	for _, item := range s.items {
		if strings.Contains(strings.ToLower(item.Title), strings.ToLower(query)) {
			copied := *item
			out = append(out, &copied)
		}
	}
	return out, nil
}

type fakeEvents struct{}

func (fakeEvents) Append(context.Context, uuid.UUID, string, int, []eventlog.Record) error {
	return nil
}

func TestAddItem(t *testing.T) {
	ctx := context.Background()

	t.Run("new item starts with all copies available", func(t *testing.T) {
		svc := NewService(newMemItemStore(), fakeEvents{})

		item, err := svc.AddItem(ctx, AddItemParams{
			Type:        ItemTypeBook,
			ISBN:        "978-0134190440",
			Title:       "The Go Programming Language",
			Creator:     "Donovan & Kernighan",
			TotalCopies: 4,
		})
		require.NoError(t, err)

		assert.Equal(t, 4, item.TotalCopies)
		assert.Equal(t, 4, item.Available)
		assert.Equal(t, DefaultBookFineRate, item.DailyFineRate)
	})

	t.Run("cds default to the cd fine rate", func(t *testing.T) {
		svc := NewService(newMemItemStore(), fakeEvents{})

		item, err := svc.AddItem(ctx, AddItemParams{Type: ItemTypeCD, Title: "Kind of Blue", Creator: "Miles Davis", TotalCopies: 1})
		require.NoError(t, err)
		assert.Equal(t, DefaultCDFineRate, item.DailyFineRate)
	})

	t.Run("explicit fine rate wins over the default", func(t *testing.T) {
		svc := NewService(newMemItemStore(), fakeEvents{})

		item, err := svc.AddItem(ctx, AddItemParams{Type: ItemTypeBook, Title: "Rare Folio", TotalCopies: 1, DailyFineRate: 2.50})
		require.NoError(t, err)
		assert.Equal(t, 2.50, item.DailyFineRate)
	})

	t.Run("unknown type is rejected", func(t *testing.T) {
		svc := NewService(newMemItemStore(), fakeEvents{})

		_, err := svc.AddItem(ctx, AddItemParams{Type: "VHS", Title: "Old Tape", TotalCopies: 1})
		require.ErrorIs(t, err, ErrInvalidItem)
	})

	t.Run("missing title is rejected", func(t *testing.T) {
		svc := NewService(newMemItemStore(), fakeEvents{})

		_, err := svc.AddItem(ctx, AddItemParams{Type: ItemTypeBook, TotalCopies: 1})
		require.ErrorIs(t, err, ErrInvalidItem)
	})
}

func TestUpdateItemCopies(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (Service, *Item) {
		t.Helper()
		svc := NewService(newMemItemStore(), fakeEvents{})
		item, err := svc.AddItem(ctx, AddItemParams{Type: ItemTypeBook, Title: "The Go Programming Language", TotalCopies: 3})
		require.NoError(t, err)
		return svc, item
	}

	t.Run("updates both counters", func(t *testing.T) {
		svc, item := setup(t)

		require.NoError(t, svc.UpdateItemCopies(ctx, item.ID, 3, 1))

		updated, err := svc.GetItem(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, updated.TotalCopies)
		assert.Equal(t, 1, updated.Available)
	})

	t.Run("available cannot go negative", func(t *testing.T) {
		svc, item := setup(t)

		err := svc.UpdateItemCopies(ctx, item.ID, 3, -1)
		require.ErrorIs(t, err, ErrInvalidItem)
	})

	t.Run("available cannot exceed total", func(t *testing.T) {
		svc, item := setup(t)

		err := svc.UpdateItemCopies(ctx, item.ID, 3, 4)
		require.ErrorIs(t, err, ErrInvalidItem)
	})

	t.Run("unknown item fails", func(t *testing.T) {
		svc, _ := setup(t)

		err := svc.UpdateItemCopies(ctx, uuid.New(), 3, 1)
		require.ErrorIs(t, err, ErrItemNotFound)
	})
}

func TestRetireItem(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemItemStore(), fakeEvents{})

	item, err := svc.AddItem(ctx, AddItemParams{Type: ItemTypeBook, Title: "The Go Programming Language", TotalCopies: 3})
	require.NoError(t, err)

	require.NoError(t, svc.RetireItem(ctx, item.ID))

	retired, err := svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "retired", retired.Status)
	assert.Equal(t, 3, retired.TotalCopies)
}
