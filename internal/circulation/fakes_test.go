// internal/circulation/fakes_test.go
package circulation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"librecirc/internal/catalog"
	"librecirc/internal/eventlog"
	"librecirc/internal/membership"
)

// In-memory fakes standing in for the Postgres stores and the remote
// services. They mirror the stores' contracts, including the (nil, nil)
// result for absent rows.

type memLoanStore struct {
	loans map[uuid.UUID]*Loan
}

func newMemLoanStore() *memLoanStore {
	return &memLoanStore{loans: make(map[uuid.UUID]*Loan)}
}

func (s *memLoanStore) Save(_ context.Context, loan *Loan) error {
	copied := *loan
	s.loans[loan.ID] = &copied
	return nil
}

func (s *memLoanStore) MarkReturned(_ context.Context, id uuid.UUID, returnDate time.Time) error {
	loan, ok := s.loans[id]
	if !ok || loan.Returned {
		return ErrAlreadyReturned
	}
	loan.Returned = true
	loan.ReturnDate = &returnDate
	return nil
}

func (s *memLoanStore) FindByID(_ context.Context, id uuid.UUID) (*Loan, error) {
	loan, ok := s.loans[id]
	if !ok {
		return nil, nil
	}
	copied := *loan
	return &copied, nil
}

func (s *memLoanStore) FindByMemberID(_ context.Context, memberID uuid.UUID) ([]*Loan, error) {
	var out []*Loan
	for _, loan := range s.loans {
		if loan.MemberID == memberID {
			out = append(out, loan)
		}
	}
	return out, nil
}

func (s *memLoanStore) FindUnreturnedByMemberID(_ context.Context, memberID uuid.UUID) ([]*Loan, error) {
	var out []*Loan
	for _, loan := range s.loans {
		if loan.MemberID == memberID && !loan.Returned {
			out = append(out, loan)
		}
	}
	return out, nil
}

func (s *memLoanStore) CountUnreturnedByMemberID(ctx context.Context, memberID uuid.UUID) (int, error) {
	open, _ := s.FindUnreturnedByMemberID(ctx, memberID)
	return len(open), nil
}

func (s *memLoanStore) FindUnreturned(_ context.Context) ([]*Loan, error) {
	var out []*Loan
	for _, loan := range s.loans {
		if !loan.Returned {
			out = append(out, loan)
		}
	}
	return out, nil
}

func (s *memLoanStore) FindOverdue(_ context.Context, asOf time.Time) ([]*Loan, error) {
	var out []*Loan
	for _, loan := range s.loans {
		if !loan.Returned && loan.DueDate.Before(asOf) {
			out = append(out, loan)
		}
	}
	return out, nil
}

type memFineStore struct {
	fines map[uuid.UUID]*Fine
}

func newMemFineStore() *memFineStore {
	return &memFineStore{fines: make(map[uuid.UUID]*Fine)}
}

func (s *memFineStore) Save(_ context.Context, fine *Fine) error {
	copied := *fine
	s.fines[fine.ID] = &copied
	return nil
}

func (s *memFineStore) FindByID(_ context.Context, id uuid.UUID) (*Fine, error) {
	fine, ok := s.fines[id]
	if !ok {
		return nil, nil
	}
	copied := *fine
	return &copied, nil
}

func (s *memFineStore) FindByMemberID(_ context.Context, memberID uuid.UUID) ([]*Fine, error) {
	var out []*Fine
	for _, fine := range s.fines {
		if fine.MemberID == memberID {
			out = append(out, fine)
		}
	}
	return out, nil
}

func (s *memFineStore) FindUnpaidByMemberID(_ context.Context, memberID uuid.UUID) ([]*Fine, error) {
	var out []*Fine
	for _, fine := range s.fines {
		if fine.MemberID == memberID && !fine.Paid {
			out = append(out, fine)
		}
	}
	return out, nil
}

func (s *memFineStore) SumUnpaidByMemberID(_ context.Context, memberID uuid.UUID) (float64, error) {
	var total float64
	for _, fine := range s.fines {
		if fine.MemberID == memberID && !fine.Paid {
			total += fine.Amount
		}
	}
	return total, nil
}

func (s *memFineStore) FindByLoanID(_ context.Context, loanID uuid.UUID) (*Fine, error) {
	for _, fine := range s.fines {
		if fine.LoanID == loanID {
			copied := *fine
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memFineStore) MarkPaid(_ context.Context, id uuid.UUID, paidAt time.Time) error {
	fine, ok := s.fines[id]
	if !ok || fine.Paid {
		return ErrInvalidPayment
	}
	fine.Paid = true
	fine.PaidAt = &paidAt
	return nil
}

type memPaymentStore struct {
	payments []*Payment
}

func newMemPaymentStore() *memPaymentStore {
	return &memPaymentStore{}
}

func (s *memPaymentStore) Save(_ context.Context, payment *Payment) error {
	copied := *payment
	s.payments = append(s.payments, &copied)
	return nil
}

func (s *memPaymentStore) FindByFineID(_ context.Context, fineID uuid.UUID) ([]*Payment, error) {
	var out []*Payment
	for _, payment := range s.payments {
		if payment.FineID == fineID {
			out = append(out, payment)
		}
	}
	return out, nil
}

func (s *memPaymentStore) SumByFineID(_ context.Context, fineID uuid.UUID) (float64, error) {
	var total float64
	for _, payment := range s.payments {
		if payment.FineID == fineID {
			total += payment.Amount
		}
	}
	return total, nil
}

type fakeCatalog struct {
	items map[uuid.UUID]*catalog.Item
}

func newFakeCatalog(items ...*catalog.Item) *fakeCatalog {
	f := &fakeCatalog{items: make(map[uuid.UUID]*catalog.Item)}
	for _, item := range items {
		f.items[item.ID] = item
	}
	return f
}

func (f *fakeCatalog) GetItem(_ context.Context, id uuid.UUID) (*catalog.Item, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (f *fakeCatalog) UpdateItemCopies(_ context.Context, id uuid.UUID, newTotal, newAvailable int) error {
	item, ok := f.items[id]
	if !ok {
		return catalog.ErrItemNotFound
	}
	item.TotalCopies = newTotal
	item.Available = newAvailable
	return nil
}

type fakeMembers struct {
	members map[uuid.UUID]*membership.Member
}

func newFakeMembers(members ...*membership.Member) *fakeMembers {
	f := &fakeMembers{members: make(map[uuid.UUID]*membership.Member)}
	for _, member := range members {
		f.members[member.ID] = member
	}
	return f
}

func (f *fakeMembers) GetMember(_ context.Context, id uuid.UUID) (*membership.Member, error) {
	member, ok := f.members[id]
	if !ok {
		return nil, nil
	}
	copied := *member
	return &copied, nil
}

type fakeEvents struct {
	appended []eventlog.Record
}

func (f *fakeEvents) Append(_ context.Context, aggregateID uuid.UUID, aggregateType string, _ int, records []eventlog.Record) error {
	for _, record := range records {
		record.AggregateID = aggregateID
		record.AggregateType = aggregateType
		f.appended = append(f.appended, record)
	}
	return nil
}

func (f *fakeEvents) types() []string {
	out := make([]string, 0, len(f.appended))
	for _, record := range f.appended {
		out = append(out, record.EventType)
	}
	return out
}

func activeMember() *membership.Member {
	return &membership.Member{
		ID:     uuid.New(),
		Email:  "reader@example.com",
		Name:   "Avid Reader",
		Status: membership.StatusActive,
	}
}

func bookItem(available int) *catalog.Item {
	return &catalog.Item{
		ID:            uuid.New(),
		Type:          catalog.ItemTypeBook,
		Title:         "The Go Programming Language",
		Creator:       "Donovan & Kernighan",
		TotalCopies:   5,
		Available:     available,
		DailyFineRate: catalog.DefaultBookFineRate,
		Status:        "active",
	}
}
