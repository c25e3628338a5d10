// internal/circulation/implementation.go
package circulation

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"librecirc/internal/catalog"
	"librecirc/internal/clock"
	"librecirc/internal/eventlog"
)

// catalogGateway is the slice of the catalog service the orchestrator needs.
type catalogGateway interface {
	GetItem(ctx context.Context, id uuid.UUID) (*catalog.Item, error)
	UpdateItemCopies(ctx context.Context, id uuid.UUID, newTotal, newAvailable int) error
}

type eventAppender interface {
	Append(ctx context.Context, aggregateID uuid.UUID, aggregateType string, expectedVersion int, records []eventlog.Record) error
}

// service implements the Service interface.
type service struct {
	loans       LoanStore
	fines       FineStore
	payments    PaymentStore
	items       catalogGateway
	eligibility *EligibilityChecker
	events      eventAppender
	clk         clock.Clock
}

// NewService creates a new circulation service instance.
func NewService(
	loans LoanStore,
	fines FineStore,
	payments PaymentStore,
	items catalogGateway,
	eligibility *EligibilityChecker,
	events eventAppender,
	clk clock.Clock,
) Service {
	return &service{
		loans:       loans,
		fines:       fines,
		payments:    payments,
		items:       items,
		eligibility: eligibility,
		events:      events,
		clk:         clk,
	}
}

// Borrow orchestrates the checkout: eligibility, stock check, availability
// decrement, then the loan record. A failure after the decrement rolls the
// counter back.
func (s *service) Borrow(ctx context.Context, memberID, itemID uuid.UUID) (*Loan, error) {
	if err := s.eligibility.Check(ctx, memberID); err != nil {
		return nil, err
	}

	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("look up item: %w", err)
	}
	if item == nil {
		return nil, fmt.Errorf("%w: item %s not found", ErrInsufficientStock, itemID)
	}
	if item.Available <= 0 {
		return nil, fmt.Errorf("%w: no copies of %q available", ErrInsufficientStock, item.Title)
	}

	if err := s.items.UpdateItemCopies(ctx, itemID, item.TotalCopies, item.Available-1); err != nil {
		return nil, fmt.Errorf("decrement availability: %w", err)
	}

	compensate := func() {
		log.Printf("compensating failed borrow: restoring availability for item %s", itemID)
		if err := s.items.UpdateItemCopies(ctx, itemID, item.TotalCopies, item.Available); err != nil {
			log.Printf("failed to restore availability for item %s: %v", itemID, err)
		}
	}

	borrowDate := s.clk.Now().UTC()
	loan := &Loan{
		ID:         uuid.New(),
		MemberID:   memberID,
		ItemID:     itemID,
		ItemType:   item.Type,
		BorrowDate: borrowDate,
		DueDate:    borrowDate.AddDate(0, 0, LoanPeriodFor(item.Type)),
	}

	payload, err := json.Marshal(LoanCreatedEvent{
		LoanID:   loan.ID,
		MemberID: memberID,
		ItemID:   itemID,
		ItemType: loan.ItemType,
		DueDate:  loan.DueDate,
	})
	if err != nil {
		compensate()
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}

	record := eventlog.Record{EventType: "LoanCreated", Payload: payload}
	if err := s.events.Append(ctx, loan.ID, "loan", 0, []eventlog.Record{record}); err != nil {
		compensate()
		return nil, fmt.Errorf("append event: %w", err)
	}

	if err := s.loans.Save(ctx, loan); err != nil {
		compensate()
		return nil, fmt.Errorf("save loan: %w", err)
	}

	return loan, nil
}

// Return closes the loan, restores availability, and issues a fine when the
// item is overdue. Returns nil for an on-time return.
func (s *service) Return(ctx context.Context, loanID uuid.UUID, returnDate time.Time) (*Fine, error) {
	loan, err := s.loans.FindByID(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("look up loan: %w", err)
	}
	if loan == nil {
		return nil, fmt.Errorf("%w: %s", ErrLoanNotFound, loanID)
	}
	if loan.Returned {
		return nil, fmt.Errorf("%w: loan %s", ErrAlreadyReturned, loanID)
	}

	if returnDate.IsZero() {
		returnDate = s.clk.Now().UTC()
	}

	payload, err := json.Marshal(LoanReturnedEvent{
		LoanID:     loan.ID,
		MemberID:   loan.MemberID,
		ItemID:     loan.ItemID,
		ReturnDate: returnDate,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}

	record := eventlog.Record{EventType: "LoanReturned", Payload: payload}
	if err := s.events.Append(ctx, loan.ID, "loan", 1, []eventlog.Record{record}); err != nil {
		return nil, fmt.Errorf("append event: %w", err)
	}

	if err := s.loans.MarkReturned(ctx, loan.ID, returnDate); err != nil {
		return nil, err
	}

	item, err := s.items.GetItem(ctx, loan.ItemID)
	if err != nil {
		return nil, fmt.Errorf("look up item: %w", err)
	}
	if item != nil {
		if err := s.items.UpdateItemCopies(ctx, loan.ItemID, item.TotalCopies, item.Available+1); err != nil {
			return nil, fmt.Errorf("increment availability: %w", err)
		}
	}

	daysOverdue := clock.DaysBetween(loan.DueDate, returnDate)
	if daysOverdue <= 0 {
		return nil, nil
	}

	dailyRate := DefaultRateFor(loan.ItemType)
	if item != nil {
		dailyRate = item.DailyFineRate
	}

	policy := PolicyFor(loan.ItemType)
	fine := &Fine{
		ID:          uuid.New(),
		MemberID:    loan.MemberID,
		LoanID:      loan.ID,
		Amount:      policy.Calculate(daysOverdue, dailyRate),
		DaysOverdue: daysOverdue,
		IssuedAt:    s.clk.Now().UTC(),
	}

	finePayload, err := json.Marshal(FineIssuedEvent{
		FineID:      fine.ID,
		MemberID:    fine.MemberID,
		LoanID:      fine.LoanID,
		Amount:      fine.Amount,
		DaysOverdue: fine.DaysOverdue,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}

	fineRecord := eventlog.Record{EventType: "FineIssued", Payload: finePayload}
	if err := s.events.Append(ctx, fine.ID, "fine", 0, []eventlog.Record{fineRecord}); err != nil {
		return nil, fmt.Errorf("append event: %w", err)
	}

	if err := s.fines.Save(ctx, fine); err != nil {
		return nil, fmt.Errorf("save fine: %w", err)
	}

	return fine, nil
}

func (s *service) GetMemberLoans(ctx context.Context, memberID uuid.UUID) ([]*Loan, error) {
	return s.loans.FindByMemberID(ctx, memberID)
}

func (s *service) GetMemberOpenLoans(ctx context.Context, memberID uuid.UUID) ([]*Loan, error) {
	return s.loans.FindUnreturnedByMemberID(ctx, memberID)
}

func (s *service) GetMemberFines(ctx context.Context, memberID uuid.UUID) ([]*Fine, error) {
	return s.fines.FindByMemberID(ctx, memberID)
}

func (s *service) GetMemberUnpaidFines(ctx context.Context, memberID uuid.UUID) ([]*Fine, error) {
	return s.fines.FindUnpaidByMemberID(ctx, memberID)
}

// PayFine records a payment against a fine. Partial payments accumulate; the
// fine settles once the running total covers the amount. A payment may not
// exceed the outstanding balance.
func (s *service) PayFine(ctx context.Context, fineID uuid.UUID, amount float64, method string) (*Payment, error) {
	fine, err := s.fines.FindByID(ctx, fineID)
	if err != nil {
		return nil, fmt.Errorf("look up fine: %w", err)
	}
	if fine == nil {
		return nil, fmt.Errorf("%w: %s", ErrFineNotFound, fineID)
	}
	if fine.Paid {
		return nil, fmt.Errorf("%w: fine %s is already settled", ErrInvalidPayment, fineID)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be greater than 0", ErrInvalidPayment)
	}

	paidSoFar, err := s.payments.SumByFineID(ctx, fineID)
	if err != nil {
		return nil, fmt.Errorf("sum payments: %w", err)
	}

	// Compare in whole cents so float drift cannot leak past the balance.
	outstanding := toCents(fine.Amount) - toCents(paidSoFar)
	if toCents(amount) > outstanding {
		return nil, fmt.Errorf("%w: amount $%.2f exceeds outstanding balance $%.2f", ErrInvalidPayment, amount, float64(outstanding)/100)
	}

	now := s.clk.Now().UTC()
	payment := &Payment{
		ID:     uuid.New(),
		FineID: fineID,
		Amount: amount,
		Method: method,
		PaidAt: now,
	}

	settled := toCents(amount) == outstanding

	eventVersion, err := s.paymentEventVersion(ctx, fineID)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(FinePaidEvent{FineID: fineID, Amount: amount, Method: method, Settled: settled})
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}
	record := eventlog.Record{EventType: "FinePaymentRecorded", Payload: payload}
	if err := s.events.Append(ctx, fineID, "fine", eventVersion, []eventlog.Record{record}); err != nil {
		return nil, fmt.Errorf("append event: %w", err)
	}

	if err := s.payments.Save(ctx, payment); err != nil {
		return nil, fmt.Errorf("save payment: %w", err)
	}

	if settled {
		if err := s.fines.MarkPaid(ctx, fineID, now); err != nil {
			return nil, err
		}
	}

	return payment, nil
}

// paymentEventVersion derives the fine aggregate's next expected version from
// the number of payments already recorded (FineIssued is version 1).
func (s *service) paymentEventVersion(ctx context.Context, fineID uuid.UUID) (int, error) {
	existing, err := s.payments.FindByFineID(ctx, fineID)
	if err != nil {
		return 0, fmt.Errorf("list payments: %w", err)
	}
	return 1 + len(existing), nil
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// DefaultRateFor returns the fallback daily rate for a category, used when
// the item record is gone (e.g. retired and purged) by the time of return.
func DefaultRateFor(t catalog.ItemType) float64 {
	if t == catalog.ItemTypeCD {
		return catalog.DefaultCDFineRate
	}
	return catalog.DefaultBookFineRate
}
