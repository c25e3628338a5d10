// internal/circulation/policy.go
package circulation

import (
	"math"

	"librecirc/internal/catalog"
)

// Circulation policy constants.
const (
	BookLoanPeriodDays = 28
	CDLoanPeriodDays   = 7

	MaxItemsPerMember = 10
	MaxFineThreshold  = 50.00
	MaxFineAmount     = 100.00
)

// FinePolicy maps days overdue and a daily rate to a fine amount. One policy
// value exists per item category; they share the formula and differ only in
// the constants that feed it.
type FinePolicy struct {
	Cap float64
}

var (
	bookFinePolicy = FinePolicy{Cap: MaxFineAmount}
	cdFinePolicy   = FinePolicy{Cap: MaxFineAmount}
)

// PolicyFor selects the fine policy for an item category.
func PolicyFor(t catalog.ItemType) FinePolicy {
	if t == catalog.ItemTypeCD {
		return cdFinePolicy
	}
	return bookFinePolicy
}

// LoanPeriodFor returns the loan period in days for an item category.
func LoanPeriodFor(t catalog.ItemType) int {
	if t == catalog.ItemTypeCD {
		return CDLoanPeriodDays
	}
	return BookLoanPeriodDays
}

// Calculate computes the fine for the given days overdue at the given daily
// rate. Zero or negative days overdue never fine. The result is capped and
// rounded half-up to cents. Pure; negative rates are the caller's problem.
func (p FinePolicy) Calculate(daysOverdue int, dailyRate float64) float64 {
	if daysOverdue <= 0 {
		return 0
	}

	fine := float64(daysOverdue) * dailyRate
	if fine > p.Cap {
		fine = p.Cap
	}

	return math.Floor(fine*100+0.5) / 100
}
