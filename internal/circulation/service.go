// internal/circulation/service.go
package circulation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service defines the interface for the circulation service.
type Service interface {
	Borrow(ctx context.Context, memberID, itemID uuid.UUID) (*Loan, error)
	// Return closes a loan. The returned fine is nil when the item came back
	// on time. Reservation fulfillment is NOT triggered here; the caller
	// decides when to run it against the reservations service.
	Return(ctx context.Context, loanID uuid.UUID, returnDate time.Time) (*Fine, error)

	GetMemberLoans(ctx context.Context, memberID uuid.UUID) ([]*Loan, error)
	GetMemberOpenLoans(ctx context.Context, memberID uuid.UUID) ([]*Loan, error)
	GetMemberFines(ctx context.Context, memberID uuid.UUID) ([]*Fine, error)
	GetMemberUnpaidFines(ctx context.Context, memberID uuid.UUID) ([]*Fine, error)

	PayFine(ctx context.Context, fineID uuid.UUID, amount float64, method string) (*Payment, error)

	OverdueReport(ctx context.Context) (*OverdueReport, error)
	ActiveLoansReport(ctx context.Context) (*ActiveLoansReport, error)
}
