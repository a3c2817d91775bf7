package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/circulo/circulo/internal/domain"
)

// LoanStore implements domain.LoanRepo. Create allocates the next
// sequential code (prefix-NNN) inside the insert transaction.
type LoanStore struct {
	db     *DB
	prefix string
}

// NewLoanStore returns a store allocating loan codes under prefix.
// Pass DefaultLoanPrefix unless configuration overrides it.
func NewLoanStore(db *DB, prefix string) *LoanStore {
	if prefix == "" {
		prefix = DefaultLoanPrefix
	}
	return &LoanStore{db: db, prefix: prefix}
}

func (s *LoanStore) Create(ctx context.Context, l *domain.Loan) error {
	s.db.loanSeq.Lock()
	defer s.db.loanSeq.Unlock()

	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin loan insert: %w", err)
	}
	defer tx.Rollback()

	var last sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT code FROM loans ORDER BY id DESC LIMIT 1`).Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read last loan code: %w", err)
	}
	l.Code = domain.NextCode(s.prefix, last.String)

	res, err := tx.ExecContext(ctx,
		`INSERT INTO loans (code, title_id, patron_id, loan_date, due_date, return_date, state, condition)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.Code, l.TitleID, nullInt(l.PatronID), fmtDate(l.LoanDate),
		nullDate(l.DueDate), nullDate(l.ReturnDate), string(l.State), string(l.Condition))
	if err != nil {
		return fmt.Errorf("insert loan: %w", err)
	}
	if l.ID, err = res.LastInsertId(); err != nil {
		return err
	}
	return tx.Commit()
}

const loanColumns = `id, code, title_id, patron_id, loan_date, due_date, return_date, state, condition`

func (s *LoanStore) Get(ctx context.Context, id int64) (*domain.Loan, error) {
	return s.getWhere(ctx, `id = ?`, id)
}

func (s *LoanStore) GetByCode(ctx context.Context, code string) (*domain.Loan, error) {
	return s.getWhere(ctx, `code = ?`, code)
}

func (s *LoanStore) getWhere(ctx context.Context, where string, arg any) (*domain.Loan, error) {
	row := s.db.db.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE `+where, arg)
	l, err := scanLoan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get loan: %w", err)
	}
	return l, nil
}

func (s *LoanStore) Update(ctx context.Context, l *domain.Loan) error {
	res, err := s.db.db.ExecContext(ctx,
		`UPDATE loans SET patron_id = ?, due_date = ?, return_date = ?, state = ?, condition = ?
		 WHERE id = ?`,
		nullInt(l.PatronID), nullDate(l.DueDate), nullDate(l.ReturnDate),
		string(l.State), string(l.Condition), l.ID)
	if err != nil {
		return fmt.Errorf("update loan %s: %w", l.Code, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a loan. Loans with fines on record are protected.
func (s *LoanStore) Delete(ctx context.Context, id int64) error {
	var refs int
	err := s.db.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM fines WHERE loan_id = ?`, id).Scan(&refs)
	if err != nil {
		return fmt.Errorf("count fines for loan %d: %w", id, err)
	}
	if refs > 0 {
		return &domain.ResourceError{
			Resource: fmt.Sprintf("loan %d", id),
			Err:      domain.ErrReferentialBlock,
		}
	}
	res, err := s.db.db.ExecContext(ctx, `DELETE FROM loans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete loan %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *LoanStore) CountOpenByTitle(ctx context.Context, titleID int64) (int, error) {
	var n int
	err := s.db.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loans WHERE title_id = ? AND state IN (?, ?)`,
		titleID, string(domain.LoanActive), string(domain.LoanDelinquent)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count open loans for title %d: %w", titleID, err)
	}
	return n, nil
}

func (s *LoanStore) ListOpenDueBefore(ctx context.Context, day time.Time) ([]domain.Loan, error) {
	rows, err := s.db.db.QueryContext(ctx,
		`SELECT `+loanColumns+` FROM loans
		 WHERE state IN (?, ?) AND due_date IS NOT NULL AND due_date < ?
		 ORDER BY id`,
		string(domain.LoanActive), string(domain.LoanDelinquent), fmtDate(day))
	if err != nil {
		return nil, fmt.Errorf("list overdue loans: %w", err)
	}
	defer rows.Close()

	var out []domain.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanLoan(row scanner) (*domain.Loan, error) {
	var (
		l          domain.Loan
		patronID   sql.NullInt64
		loanDate   string
		dueDate    sql.NullString
		returnDate sql.NullString
		state      string
		condition  string
	)
	err := row.Scan(&l.ID, &l.Code, &l.TitleID, &patronID,
		&loanDate, &dueDate, &returnDate, &state, &condition)
	if err != nil {
		return nil, err
	}
	if patronID.Valid {
		l.PatronID = &patronID.Int64
	}
	if l.LoanDate, err = parseDate(loanDate); err != nil {
		return nil, fmt.Errorf("loan %s: bad loan date: %w", l.Code, err)
	}
	if l.DueDate, err = scanNullDate(dueDate); err != nil {
		return nil, fmt.Errorf("loan %s: bad due date: %w", l.Code, err)
	}
	if l.ReturnDate, err = scanNullDate(returnDate); err != nil {
		return nil, fmt.Errorf("loan %s: bad return date: %w", l.Code, err)
	}
	l.State = domain.LoanState(state)
	l.Condition = domain.ReturnCondition(condition)
	return &l, nil
}

func nullInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
