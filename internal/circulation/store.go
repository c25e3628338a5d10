// internal/circulation/store.go
package circulation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LoanStore is the persistence port for loans. FindByID returns (nil, nil)
// when no loan matches.
type LoanStore interface {
	Save(ctx context.Context, loan *Loan) error
	MarkReturned(ctx context.Context, id uuid.UUID, returnDate time.Time) error
	FindByID(ctx context.Context, id uuid.UUID) (*Loan, error)
	FindByMemberID(ctx context.Context, memberID uuid.UUID) ([]*Loan, error)
	FindUnreturnedByMemberID(ctx context.Context, memberID uuid.UUID) ([]*Loan, error)
	CountUnreturnedByMemberID(ctx context.Context, memberID uuid.UUID) (int, error)
	FindUnreturned(ctx context.Context) ([]*Loan, error)
	FindOverdue(ctx context.Context, asOf time.Time) ([]*Loan, error)
}

// FineStore is the persistence port for fines.
type FineStore interface {
	Save(ctx context.Context, fine *Fine) error
	FindByID(ctx context.Context, id uuid.UUID) (*Fine, error)
	FindByMemberID(ctx context.Context, memberID uuid.UUID) ([]*Fine, error)
	FindUnpaidByMemberID(ctx context.Context, memberID uuid.UUID) ([]*Fine, error)
	SumUnpaidByMemberID(ctx context.Context, memberID uuid.UUID) (float64, error)
	FindByLoanID(ctx context.Context, loanID uuid.UUID) (*Fine, error)
	MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) error
}

// PaymentStore is the persistence port for fine payments.
type PaymentStore interface {
	Save(ctx context.Context, payment *Payment) error
	FindByFineID(ctx context.Context, fineID uuid.UUID) ([]*Payment, error)
	SumByFineID(ctx context.Context, fineID uuid.UUID) (float64, error)
}

const loanColumns = "id, member_id, item_id, item_type, borrow_date, due_date, return_date, returned"

type postgresLoanStore struct {
	db *sql.DB
}

// NewPostgresLoanStore returns a LoanStore backed by the loans read model.
func NewPostgresLoanStore(db *sql.DB) LoanStore {
	return &postgresLoanStore{db: db}
}

func (s *postgresLoanStore) Save(ctx context.Context, loan *Loan) error {
	query := `
		INSERT INTO loans (id, member_id, item_id, item_type, borrow_date, due_date, returned)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		loan.ID, loan.MemberID, loan.ItemID, loan.ItemType,
		loan.BorrowDate, loan.DueDate, loan.Returned,
	)
	if err != nil {
		return fmt.Errorf("insert loan: %w", err)
	}
	return nil
}

func (s *postgresLoanStore) MarkReturned(ctx context.Context, id uuid.UUID, returnDate time.Time) error {
	query := `
		UPDATE loans
		SET return_date = $1, returned = TRUE
		WHERE id = $2 AND returned = FALSE
	`
	result, err := s.db.ExecContext(ctx, query, returnDate, id)
	if err != nil {
		return fmt.Errorf("mark loan returned: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrAlreadyReturned
	}
	return nil
}

func (s *postgresLoanStore) FindByID(ctx context.Context, id uuid.UUID) (*Loan, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = $1`, id)
	loan, err := scanLoan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query loan: %w", err)
	}
	return loan, nil
}

func (s *postgresLoanStore) FindByMemberID(ctx context.Context, memberID uuid.UUID) ([]*Loan, error) {
	return s.queryLoans(ctx, `SELECT `+loanColumns+` FROM loans WHERE member_id = $1 ORDER BY borrow_date`, memberID)
}

func (s *postgresLoanStore) FindUnreturnedByMemberID(ctx context.Context, memberID uuid.UUID) ([]*Loan, error) {
	return s.queryLoans(ctx, `SELECT `+loanColumns+` FROM loans WHERE member_id = $1 AND returned = FALSE ORDER BY borrow_date`, memberID)
}

func (s *postgresLoanStore) CountUnreturnedByMemberID(ctx context.Context, memberID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM loans WHERE member_id = $1 AND returned = FALSE
	`, memberID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unreturned loans: %w", err)
	}
	return count, nil
}

func (s *postgresLoanStore) FindUnreturned(ctx context.Context) ([]*Loan, error) {
	return s.queryLoans(ctx, `SELECT `+loanColumns+` FROM loans WHERE returned = FALSE ORDER BY due_date`)
}

func (s *postgresLoanStore) FindOverdue(ctx context.Context, asOf time.Time) ([]*Loan, error) {
	return s.queryLoans(ctx, `SELECT `+loanColumns+` FROM loans WHERE returned = FALSE AND due_date < $1 ORDER BY due_date`, asOf)
}

func (s *postgresLoanStore) queryLoans(ctx context.Context, query string, args ...interface{}) ([]*Loan, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query loans: %w", err)
	}
	defer rows.Close()

	var loans []*Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate loans: %w", err)
	}
	return loans, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLoan(row rowScanner) (*Loan, error) {
	loan := &Loan{}
	var returnDate sql.NullTime
	err := row.Scan(
		&loan.ID,
		&loan.MemberID,
		&loan.ItemID,
		&loan.ItemType,
		&loan.BorrowDate,
		&loan.DueDate,
		&returnDate,
		&loan.Returned,
	)
	if err != nil {
		return nil, err
	}
	if returnDate.Valid {
		loan.ReturnDate = &returnDate.Time
	}
	return loan, nil
}

const fineColumns = "id, member_id, loan_id, amount, days_overdue, paid, issued_at, paid_at"

type postgresFineStore struct {
	db *sql.DB
}

// NewPostgresFineStore returns a FineStore backed by the fines read model.
func NewPostgresFineStore(db *sql.DB) FineStore {
	return &postgresFineStore{db: db}
}

func (s *postgresFineStore) Save(ctx context.Context, fine *Fine) error {
	query := `
		INSERT INTO fines (id, member_id, loan_id, amount, days_overdue, paid, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		fine.ID, fine.MemberID, fine.LoanID, fine.Amount,
		fine.DaysOverdue, fine.Paid, fine.IssuedAt,
	)
	if err != nil {
		return fmt.Errorf("insert fine: %w", err)
	}
	return nil
}

func (s *postgresFineStore) FindByID(ctx context.Context, id uuid.UUID) (*Fine, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fineColumns+` FROM fines WHERE id = $1`, id)
	fine, err := scanFine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query fine: %w", err)
	}
	return fine, nil
}

func (s *postgresFineStore) FindByLoanID(ctx context.Context, loanID uuid.UUID) (*Fine, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fineColumns+` FROM fines WHERE loan_id = $1`, loanID)
	fine, err := scanFine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query fine: %w", err)
	}
	return fine, nil
}

func (s *postgresFineStore) FindByMemberID(ctx context.Context, memberID uuid.UUID) ([]*Fine, error) {
	return s.queryFines(ctx, `SELECT `+fineColumns+` FROM fines WHERE member_id = $1 ORDER BY issued_at`, memberID)
}

func (s *postgresFineStore) FindUnpaidByMemberID(ctx context.Context, memberID uuid.UUID) ([]*Fine, error) {
	return s.queryFines(ctx, `SELECT `+fineColumns+` FROM fines WHERE member_id = $1 AND paid = FALSE ORDER BY issued_at`, memberID)
}

func (s *postgresFineStore) SumUnpaidByMemberID(ctx context.Context, memberID uuid.UUID) (float64, error) {
	var total float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM fines WHERE member_id = $1 AND paid = FALSE
	`, memberID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum unpaid fines: %w", err)
	}
	return total, nil
}

func (s *postgresFineStore) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) error {
	query := `
		UPDATE fines
		SET paid = TRUE, paid_at = $1
		WHERE id = $2 AND paid = FALSE
	`
	result, err := s.db.ExecContext(ctx, query, paidAt, id)
	if err != nil {
		return fmt.Errorf("mark fine paid: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: fine %s is already settled", ErrInvalidPayment, id)
	}
	return nil
}

func (s *postgresFineStore) queryFines(ctx context.Context, query string, args ...interface{}) ([]*Fine, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query fines: %w", err)
	}
	defer rows.Close()

	var fines []*Fine
	for rows.Next() {
		fine, err := scanFine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fine: %w", err)
		}
		fines = append(fines, fine)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fines: %w", err)
	}
	return fines, nil
}

func scanFine(row rowScanner) (*Fine, error) {
	fine := &Fine{}
	var paidAt sql.NullTime
	err := row.Scan(
		&fine.ID,
		&fine.MemberID,
		&fine.LoanID,
		&fine.Amount,
		&fine.DaysOverdue,
		&fine.Paid,
		&fine.IssuedAt,
		&paidAt,
	)
	if err != nil {
		return nil, err
	}
	if paidAt.Valid {
		fine.PaidAt = &paidAt.Time
	}
	return fine, nil
}

type postgresPaymentStore struct {
	db *sql.DB
}

// NewPostgresPaymentStore returns a PaymentStore backed by the payments read
// model.
func NewPostgresPaymentStore(db *sql.DB) PaymentStore {
	return &postgresPaymentStore{db: db}
}

func (s *postgresPaymentStore) Save(ctx context.Context, payment *Payment) error {
	query := `
		INSERT INTO payments (id, fine_id, amount, method, paid_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query,
		payment.ID, payment.FineID, payment.Amount, payment.Method, payment.PaidAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (s *postgresPaymentStore) FindByFineID(ctx context.Context, fineID uuid.UUID) ([]*Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, fine_id, amount, method, paid_at
		FROM payments
		WHERE fine_id = $1
		ORDER BY paid_at
	`, fineID)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var payments []*Payment
	for rows.Next() {
		payment := &Payment{}
		if err := rows.Scan(&payment.ID, &payment.FineID, &payment.Amount, &payment.Method, &payment.PaidAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return payments, nil
}

func (s *postgresPaymentStore) SumByFineID(ctx context.Context, fineID uuid.UUID) (float64, error) {
	var total float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM payments WHERE fine_id = $1
	`, fineID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum payments: %w", err)
	}
	return total, nil
}
