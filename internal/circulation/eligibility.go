// internal/circulation/eligibility.go
package circulation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"librecirc/internal/membership"
)

// membershipGateway is the slice of the membership service the checker needs.
type membershipGateway interface {
	GetMember(ctx context.Context, id uuid.UUID) (*membership.Member, error)
}

// EligibilityChecker decides whether a member may borrow. Read-only; the
// first failing check wins.
type EligibilityChecker struct {
	members membershipGateway
	loans   LoanStore
	fines   FineStore
}

func NewEligibilityChecker(members membershipGateway, loans LoanStore, fines FineStore) *EligibilityChecker {
	return &EligibilityChecker{members: members, loans: loans, fines: fines}
}

// Check runs the eligibility rules in order: account active, loan limit,
// unpaid-fine threshold. Returns a *RestrictionError when the member may not
// borrow; other errors are infrastructure failures.
func (c *EligibilityChecker) Check(ctx context.Context, memberID uuid.UUID) error {
	member, err := c.members.GetMember(ctx, memberID)
	if err != nil {
		return fmt.Errorf("look up member: %w", err)
	}
	if member == nil || !member.Active() {
		return &RestrictionError{Reason: "member account is inactive or unknown"}
	}

	unreturned, err := c.loans.CountUnreturnedByMemberID(ctx, memberID)
	if err != nil {
		return fmt.Errorf("count open loans: %w", err)
	}
	if unreturned >= MaxItemsPerMember {
		return &RestrictionError{Reason: fmt.Sprintf("borrowing limit of %d items reached", MaxItemsPerMember)}
	}

	unpaid, err := c.fines.SumUnpaidByMemberID(ctx, memberID)
	if err != nil {
		return fmt.Errorf("sum unpaid fines: %w", err)
	}
	if unpaid > MaxFineThreshold {
		return &RestrictionError{Reason: fmt.Sprintf("outstanding fines of $%.2f exceed the $%.2f limit", unpaid, MaxFineThreshold)}
	}

	return nil
}
