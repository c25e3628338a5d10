// internal/circulation/domain.go
package circulation

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"librecirc/internal/catalog"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrLoanNotFound      = errors.New("loan not found")
	ErrAlreadyReturned   = errors.New("item already returned")
	ErrFineNotFound      = errors.New("fine not found")
	ErrInvalidPayment    = errors.New("invalid payment")
)

// RestrictionError reports why a member may not borrow. It is an expected,
// user-facing outcome, not a fault.
type RestrictionError struct {
	Reason string
}

func (e *RestrictionError) Error() string {
	return fmt.Sprintf("borrowing restricted: %s", e.Reason)
}

// Loan is one borrowing of one item copy by one member.
//
// Invariants: Returned == (ReturnDate != nil); DueDate >= BorrowDate. A loan
// is immutable once returned.
type Loan struct {
	ID         uuid.UUID        `json:"id"`
	MemberID   uuid.UUID        `json:"member_id"`
	ItemID     uuid.UUID        `json:"item_id"`
	ItemType   catalog.ItemType `json:"item_type"`
	BorrowDate time.Time        `json:"borrow_date"`
	DueDate    time.Time        `json:"due_date"`
	ReturnDate *time.Time       `json:"return_date,omitempty"`
	Returned   bool             `json:"returned"`
}

// Fine is the penalty generated by one overdue return. At most one fine
// exists per loan; Paid == (PaidAt != nil).
type Fine struct {
	ID          uuid.UUID  `json:"id"`
	MemberID    uuid.UUID  `json:"member_id"`
	LoanID      uuid.UUID  `json:"loan_id"`
	Amount      float64    `json:"amount"`
	DaysOverdue int        `json:"days_overdue"`
	Paid        bool       `json:"paid"`
	IssuedAt    time.Time  `json:"issued_at"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

// Payment is one (possibly partial) payment against a fine.
type Payment struct {
	ID     uuid.UUID `json:"id"`
	FineID uuid.UUID `json:"fine_id"`
	Amount float64   `json:"amount"`
	Method string    `json:"method"`
	PaidAt time.Time `json:"paid_at"`
}

// LoanCreatedEvent is recorded when a borrow succeeds.
type LoanCreatedEvent struct {
	LoanID   uuid.UUID        `json:"loan_id"`
	MemberID uuid.UUID        `json:"member_id"`
	ItemID   uuid.UUID        `json:"item_id"`
	ItemType catalog.ItemType `json:"item_type"`
	DueDate  time.Time        `json:"due_date"`
}

// LoanReturnedEvent is recorded when an item comes back.
type LoanReturnedEvent struct {
	LoanID     uuid.UUID `json:"loan_id"`
	MemberID   uuid.UUID `json:"member_id"`
	ItemID     uuid.UUID `json:"item_id"`
	ReturnDate time.Time `json:"return_date"`
}

// FineIssuedEvent is recorded when an overdue return generates a fine.
type FineIssuedEvent struct {
	FineID      uuid.UUID `json:"fine_id"`
	MemberID    uuid.UUID `json:"member_id"`
	LoanID      uuid.UUID `json:"loan_id"`
	Amount      float64   `json:"amount"`
	DaysOverdue int       `json:"days_overdue"`
}

// FinePaidEvent is recorded for each payment against a fine.
type FinePaidEvent struct {
	FineID  uuid.UUID `json:"fine_id"`
	Amount  float64   `json:"amount"`
	Method  string    `json:"method"`
	Settled bool      `json:"settled"`
}
