// internal/membership/domain.go
package membership

import (
	"time"

	"github.com/google/uuid"
)

// MemberStatus is the closed set of account states. Only active members may
// borrow or reserve.
type MemberStatus string

const (
	StatusActive      MemberStatus = "active"
	StatusDeactivated MemberStatus = "deactivated"
)

// Member represents a library member.
type Member struct {
	ID           uuid.UUID    `json:"id"`
	Email        string       `json:"email"`
	Name         string       `json:"name"`
	Status       MemberStatus `json:"status"`
	RegisteredAt time.Time    `json:"registered_at"`
	ExpiresAt    time.Time    `json:"expires_at"`
	Version      int          `json:"version"`
}

// Active reports whether the member may currently use circulation services.
func (m *Member) Active() bool {
	return m.Status == StatusActive
}

// Credential represents a member's login credentials.
type Credential struct {
	MemberID     uuid.UUID `json:"member_id"`
	PasswordHash string    `json:"-"`
	Salt         string    `json:"-"`
}

// MemberRegisteredEvent is recorded when a new member registers.
type MemberRegisteredEvent struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
}

// MemberDeactivatedEvent is recorded when a member account is deactivated.
type MemberDeactivatedEvent struct {
	ID uuid.UUID `json:"id"`
}
