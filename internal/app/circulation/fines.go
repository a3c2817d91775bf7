package circulation

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/circulo/circulo/internal/domain"
	"github.com/circulo/circulo/internal/infra/observability"
)

// Ledger records and settles the fines attached to loans.
//
// Issue is an upsert for the Overdue and Damaged categories: when an
// unpaid fine of the category already exists on the loan, its amount is
// updated in place instead of inserting a duplicate. A Lost fine always
// removes every prior fine on the loan first — the loss fine supersedes
// them.
type Ledger struct {
	fines domain.FineRepo
}

// NewLedger creates a fine ledger over the given repository.
func NewLedger(fines domain.FineRepo) *Ledger {
	return &Ledger{fines: fines}
}

// Issue records a fine of the given category and amount against the loan.
// Amounts are rounded to currency precision. Returns the fine and whether
// it was newly created (false means an existing fine was updated).
func (lg *Ledger) Issue(ctx context.Context, loan *domain.Loan, category domain.FineCategory, amount float64, date time.Time) (*domain.Fine, bool, error) {
	amount = domain.RoundCurrency(amount)

	if category == domain.FineLost {
		if err := lg.fines.DeleteByLoan(ctx, loan.ID); err != nil {
			return nil, false, fmt.Errorf("clear prior fines: %w", err)
		}
		f := &domain.Fine{LoanID: loan.ID, Category: category, Amount: amount, IssueDate: date}
		if err := lg.fines.Create(ctx, f); err != nil {
			return nil, false, fmt.Errorf("create lost fine: %w", err)
		}
		observability.FinesIssued.WithLabelValues(string(category)).Inc()
		log.Printf("[fines] %s issued on loan %s: %.2f (priors cleared)", f.Code, loan.Code, f.Amount)
		return f, true, nil
	}

	existing, err := lg.unresolved(ctx, loan.ID, category)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		existing.Amount = amount
		if err := lg.fines.Update(ctx, existing); err != nil {
			return nil, false, fmt.Errorf("update fine %s: %w", existing.Code, err)
		}
		observability.FinesIssued.WithLabelValues(string(category)).Inc()
		return existing, false, nil
	}

	f := &domain.Fine{LoanID: loan.ID, Category: category, Amount: amount, IssueDate: date}
	if err := lg.fines.Create(ctx, f); err != nil {
		return nil, false, fmt.Errorf("create fine: %w", err)
	}
	observability.FinesIssued.WithLabelValues(string(category)).Inc()
	log.Printf("[fines] %s issued on loan %s: %s %.2f", f.Code, loan.Code, category, f.Amount)
	return f, true, nil
}

// Total sums all fine amounts on a loan, paid or not, at currency
// precision.
func (lg *Ledger) Total(ctx context.Context, loanID int64) (float64, error) {
	fines, err := lg.fines.ListByLoan(ctx, loanID)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, f := range fines {
		total += f.Amount
	}
	return domain.RoundCurrency(total), nil
}

// Outstanding sums the unpaid fine amounts on a loan.
func (lg *Ledger) Outstanding(ctx context.Context, loanID int64) (float64, error) {
	fines, err := lg.fines.ListByLoan(ctx, loanID)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, f := range fines {
		if !f.Paid {
			total += f.Amount
		}
	}
	return domain.RoundCurrency(total), nil
}

// ListByLoan returns all fines recorded against a loan.
func (lg *Ledger) ListByLoan(ctx context.Context, loanID int64) ([]domain.Fine, error) {
	return lg.fines.ListByLoan(ctx, loanID)
}

// MarkPaid settles a fine by its code.
func (lg *Ledger) MarkPaid(ctx context.Context, code string) (*domain.Fine, error) {
	f, err := lg.fines.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if f.Paid {
		return f, nil
	}
	f.Paid = true
	if err := lg.fines.Update(ctx, f); err != nil {
		return nil, fmt.Errorf("update fine %s: %w", f.Code, err)
	}
	observability.FinesPaid.Inc()
	log.Printf("[fines] %s marked paid", f.Code)
	return f, nil
}

// unresolved finds the unpaid fine of a category on a loan, nil when none
// exists. The one-unpaid-fine-per-category invariant makes "first match"
// well defined.
func (lg *Ledger) unresolved(ctx context.Context, loanID int64, category domain.FineCategory) (*domain.Fine, error) {
	fines, err := lg.fines.ListByLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	for i := range fines {
		if fines[i].Category == category && !fines[i].Paid {
			return &fines[i], nil
		}
	}
	return nil, nil
}
