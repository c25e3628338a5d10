// internal/reservation/service.go
package reservation

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrMemberNotFound       = errors.New("member not found")
	ErrItemNotFound         = errors.New("item not found")
	ErrItemAvailable        = errors.New("item is currently available; borrow it instead")
	ErrDuplicateReservation = errors.New("member already has an active reservation for this item")
	ErrReservationNotFound  = errors.New("reservation not found")
	ErrNotOwner             = errors.New("reservation belongs to another member")
	ErrNotActive            = errors.New("reservation is not active")
)

// Service is the reservation queue manager. It is the sole mutator of
// reservation status; inventory and notification side effects stay with the
// caller.
type Service interface {
	CreateReservation(ctx context.Context, memberID, itemID uuid.UUID) (*Reservation, error)
	CancelReservation(ctx context.Context, reservationID, memberID uuid.UUID) error
	// FulfillNextReservation promotes the oldest active reservation for the
	// item to FULFILLED. Returns (nil, nil) when the queue is empty.
	FulfillNextReservation(ctx context.Context, itemID uuid.UUID) (*Reservation, error)
	// ExpireOldReservations transitions every active reservation whose expiry
	// is strictly before now and returns the count. Idempotent.
	ExpireOldReservations(ctx context.Context) (int, error)
	// QueuePosition returns the 1-based rank of the reservation in its item's
	// active queue, or -1 when it does not exist or is not active.
	QueuePosition(ctx context.Context, reservationID uuid.UUID) (int, error)
	HasActiveReservation(ctx context.Context, memberID, itemID uuid.UUID) (bool, error)

	GetMemberReservations(ctx context.Context, memberID uuid.UUID) ([]*Reservation, error)
	GetActiveMemberReservations(ctx context.Context, memberID uuid.UUID) ([]*Reservation, error)
	GetItemReservationQueue(ctx context.Context, itemID uuid.UUID) ([]*Reservation, error)
}
