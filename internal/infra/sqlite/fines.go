package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/circulo/circulo/internal/domain"
)

// FineStore implements domain.FineRepo. Create allocates the next
// sequential code (prefix-NNN) inside the insert transaction; the fine
// sequence is independent of the loan sequence.
type FineStore struct {
	db     *DB
	prefix string
}

// NewFineStore returns a store allocating fine codes under prefix.
// Pass DefaultFinePrefix unless configuration overrides it.
func NewFineStore(db *DB, prefix string) *FineStore {
	if prefix == "" {
		prefix = DefaultFinePrefix
	}
	return &FineStore{db: db, prefix: prefix}
}

func (s *FineStore) Create(ctx context.Context, f *domain.Fine) error {
	s.db.fineSeq.Lock()
	defer s.db.fineSeq.Unlock()

	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin fine insert: %w", err)
	}
	defer tx.Rollback()

	var last sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT code FROM fines ORDER BY id DESC LIMIT 1`).Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read last fine code: %w", err)
	}
	f.Code = domain.NextCode(s.prefix, last.String)

	res, err := tx.ExecContext(ctx,
		`INSERT INTO fines (code, loan_id, category, amount, paid, issue_date)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		f.Code, f.LoanID, string(f.Category), f.Amount, f.Paid, fmtDate(f.IssueDate))
	if err != nil {
		return fmt.Errorf("insert fine: %w", err)
	}
	if f.ID, err = res.LastInsertId(); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *FineStore) GetByCode(ctx context.Context, code string) (*domain.Fine, error) {
	var (
		f         domain.Fine
		category  string
		issueDate string
	)
	err := s.db.db.QueryRowContext(ctx,
		`SELECT id, code, loan_id, category, amount, paid, issue_date
		 FROM fines WHERE code = ?`, code).
		Scan(&f.ID, &f.Code, &f.LoanID, &category, &f.Amount, &f.Paid, &issueDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get fine %s: %w", code, err)
	}
	f.Category = domain.FineCategory(category)
	if f.IssueDate, err = parseDate(issueDate); err != nil {
		return nil, fmt.Errorf("fine %s: bad issue date: %w", code, err)
	}
	return &f, nil
}

func (s *FineStore) Update(ctx context.Context, f *domain.Fine) error {
	res, err := s.db.db.ExecContext(ctx,
		`UPDATE fines SET amount = ?, paid = ?, issue_date = ? WHERE id = ?`,
		f.Amount, f.Paid, fmtDate(f.IssueDate), f.ID)
	if err != nil {
		return fmt.Errorf("update fine %s: %w", f.Code, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *FineStore) ListByLoan(ctx context.Context, loanID int64) ([]domain.Fine, error) {
	rows, err := s.db.db.QueryContext(ctx,
		`SELECT id, code, loan_id, category, amount, paid, issue_date
		 FROM fines WHERE loan_id = ? ORDER BY id`, loanID)
	if err != nil {
		return nil, fmt.Errorf("list fines for loan %d: %w", loanID, err)
	}
	defer rows.Close()

	var out []domain.Fine
	for rows.Next() {
		var (
			f         domain.Fine
			category  string
			issueDate string
		)
		if err := rows.Scan(&f.ID, &f.Code, &f.LoanID, &category,
			&f.Amount, &f.Paid, &issueDate); err != nil {
			return nil, err
		}
		f.Category = domain.FineCategory(category)
		if f.IssueDate, err = parseDate(issueDate); err != nil {
			return nil, fmt.Errorf("fine %s: bad issue date: %w", f.Code, err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// DeleteByLoan clears every fine on a loan. A lost-copy fine replaces
// all prior penalties.
func (s *FineStore) DeleteByLoan(ctx context.Context, loanID int64) error {
	_, err := s.db.db.ExecContext(ctx, `DELETE FROM fines WHERE loan_id = ?`, loanID)
	if err != nil {
		return fmt.Errorf("delete fines for loan %d: %w", loanID, err)
	}
	return nil
}
