package circulation

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/circulo/circulo/internal/domain"
	"github.com/circulo/circulo/internal/infra/observability"
)

// SweepResult reports what an overdue sweep did.
type SweepResult struct {
	Examined int      `json:"examined"`
	Created  int      `json:"fines_created"`
	Updated  int      `json:"fines_updated"`
	Errors   []string `json:"errors,omitempty"`
}

// Summary renders the operator-facing exit summary.
func (r SweepResult) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "sweep complete: %d fines created, %d fines updated, %d loans examined", r.Created, r.Updated, r.Examined)
	if len(r.Errors) > 0 {
		fmt.Fprintf(&b, ", %d errors", len(r.Errors))
	}
	return b.String()
}

// SweepOverdue scans open loans past their due date, upserts their Overdue
// fines at days-late × daily rate, and moves Active loans to Delinquent.
//
// The sweep is idempotent per day: a second run updates existing fine
// amounts to the same value and never re-transitions a Delinquent loan.
// One loan's failure is collected and does not abort the rest of the
// batch; an external scheduler invokes this daily, and an ad-hoc run is
// always safe.
func (s *Service) SweepOverdue(ctx context.Context) (SweepResult, error) {
	today := domain.DateOnly(s.clock.Today())

	overdue, err := s.loans.ListOpenDueBefore(ctx, today)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list overdue loans: %w", err)
	}

	var res SweepResult
	for i := range overdue {
		res.Examined++
		observability.SweepLoansExamined.Inc()
		if err := s.sweepLoan(ctx, &overdue[i], today, &res); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("loan %s: %v", overdue[i].Code, err))
			observability.SweepErrors.Inc()
			log.Printf("[sweep] loan %s: %v", overdue[i].Code, err)
		}
	}

	log.Printf("[sweep] %s", res.Summary())
	return res, nil
}

// sweepLoan handles a single overdue loan under the service lock, so each
// loan's fine upsert and state transition form one atomic unit.
func (s *Service) sweepLoan(ctx context.Context, stale *domain.Loan, today time.Time, res *SweepResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The overdue listing was taken outside the lock; the loan may have
	// been returned since. Re-fetch and skip anything no longer open so a
	// concurrent return is never overwritten with Delinquent.
	l, err := s.loans.GetByCode(ctx, stale.Code)
	if err != nil {
		return fmt.Errorf("refresh loan: %w", err)
	}
	if !l.Open() {
		return nil
	}
	if l.DueDate == nil {
		return fmt.Errorf("active loan has no due date")
	}

	daysLate := l.DaysLate(today)
	amount := float64(daysLate) * s.policy.OverdueDailyRate
	_, created, err := s.ledger.Issue(ctx, l, domain.FineOverdue, amount, today)
	if err != nil {
		return fmt.Errorf("issue overdue fine: %w", err)
	}
	if created {
		res.Created++
		observability.SweepFinesCreated.Inc()
	} else {
		res.Updated++
		observability.SweepFinesUpdated.Inc()
	}

	if l.State == domain.LoanActive {
		l.State = domain.LoanDelinquent
		if err := s.loans.Update(ctx, l); err != nil {
			return fmt.Errorf("mark delinquent: %w", err)
		}
	}
	return nil
}
