// internal/reservation/domain.go
package reservation

import (
	"time"

	"github.com/google/uuid"
)

// Status is the closed set of reservation states. ACTIVE is the only
// non-terminal state; no transition leaves a terminal state.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusFulfilled Status = "FULFILLED"
	StatusExpired   Status = "EXPIRED"
	StatusCancelled Status = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusFulfilled, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s is final.
func (s Status) Terminal() bool {
	return s.Valid() && s != StatusActive
}

// HorizonDays is the fixed reservation lifetime: an unfulfilled reservation
// expires this many days after it was made.
const HorizonDays = 7

// Reservation is a queued claim on an item that had no available copies when
// the claim was made. Queue order is (ReservedAt ASC, ID ASC); the ID is the
// deterministic tie-break for identical timestamps.
type Reservation struct {
	ID         uuid.UUID `json:"id"`
	MemberID   uuid.UUID `json:"member_id"`
	ItemID     uuid.UUID `json:"item_id"`
	ReservedAt time.Time `json:"reserved_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Status     Status    `json:"status"`
}

// ReservationCreatedEvent is recorded when a member joins an item's queue.
type ReservationCreatedEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	MemberID      uuid.UUID `json:"member_id"`
	ItemID        uuid.UUID `json:"item_id"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// ReservationTransitionedEvent is recorded for every state transition out of
// ACTIVE.
type ReservationTransitionedEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	From          Status    `json:"from"`
	To            Status    `json:"to"`
}
