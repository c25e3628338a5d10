// internal/circulation/reports_test.go
package circulation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librecirc/internal/catalog"
	"librecirc/internal/clock"
)

func TestOverdueReport(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	member := activeMember()
	f := newFixture(&clock.Fixed{T: now}, newFakeMembers(member), newFakeCatalog())

	overdue := &Loan{
		ID:       uuid.New(),
		MemberID: member.ID,
		ItemID:   uuid.New(),
		ItemType: catalog.ItemTypeBook,
		DueDate:  now.AddDate(0, 0, -4),
	}
	onTime := &Loan{
		ID:       uuid.New(),
		MemberID: member.ID,
		ItemID:   uuid.New(),
		ItemType: catalog.ItemTypeBook,
		DueDate:  now.AddDate(0, 0, 4),
	}
	require.NoError(t, f.loans.Save(ctx, overdue))
	require.NoError(t, f.loans.Save(ctx, onTime))

	report, err := f.svc.OverdueReport(ctx)
	require.NoError(t, err)

	assert.Equal(t, now, report.GeneratedAt)
	assert.Equal(t, 1, report.TotalItems)
	require.Len(t, report.Entries, 1)
	assert.Equal(t, overdue.ID, report.Entries[0].LoanID)
	assert.Equal(t, 4, report.Entries[0].DaysOverdue)
	assert.Equal(t, 0.0, report.Entries[0].FineAmount)
}

func TestActiveLoansReport(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	member := activeMember()
	f := newFixture(&clock.Fixed{T: now}, newFakeMembers(member), newFakeCatalog())

	open := &Loan{ID: uuid.New(), MemberID: member.ID, ItemID: uuid.New(), ItemType: catalog.ItemTypeBook, DueDate: now.AddDate(0, 0, 10)}
	closedAt := now
	closed := &Loan{ID: uuid.New(), MemberID: member.ID, ItemID: uuid.New(), ItemType: catalog.ItemTypeBook, Returned: true, ReturnDate: &closedAt}
	require.NoError(t, f.loans.Save(ctx, open))
	require.NoError(t, f.loans.Save(ctx, closed))

	report, err := f.svc.ActiveLoansReport(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.TotalItems)
	require.Len(t, report.Entries, 1)
	assert.Equal(t, open.ID, report.Entries[0].LoanID)
}
