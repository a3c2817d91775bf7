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

// NotifyOutstanding informs a loan's patron of their outstanding fines.
//
// Delivery failure is returned to the caller wrapped in
// ErrNotificationFailed; the core never retries. A loan with no unpaid
// fines sends nothing.
func (s *Service) NotifyOutstanding(ctx context.Context, code string) error {
	l, err := s.loans.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	if l.PatronID == nil {
		return &domain.StateError{Code: l.Code, State: l.State, Err: domain.ErrMissingPatron}
	}
	p, err := s.patrons.Get(ctx, *l.PatronID)
	if err != nil {
		return fmt.Errorf("patron %d: %w", *l.PatronID, err)
	}

	fines, err := s.ledger.ListByLoan(ctx, l.ID)
	if err != nil {
		return fmt.Errorf("list fines: %w", err)
	}
	var outstanding float64
	var lines []string
	for _, f := range fines {
		if f.Paid {
			continue
		}
		outstanding += f.Amount
		lines = append(lines, fmt.Sprintf("  %s  %-8s %8.2f  issued %s",
			f.Code, f.Category, f.Amount, f.IssueDate.Format(time.DateOnly)))
	}
	if outstanding == 0 {
		log.Printf("[notify] loan %s has no outstanding fines, nothing to send", l.Code)
		return nil
	}

	subject := fmt.Sprintf("Outstanding fines on loan %s", l.Code)
	body := fmt.Sprintf("Dear %s,\n\nloan %s carries unpaid fines:\n\n%s\n\nTotal outstanding: %.2f\n",
		p.Name, l.Code, strings.Join(lines, "\n"), domain.RoundCurrency(outstanding))

	if err := s.notifier.Send(ctx, p.Email, subject, body); err != nil {
		observability.NotificationsSent.WithLabelValues("error").Inc()
		return fmt.Errorf("%w: %v", domain.ErrNotificationFailed, err)
	}
	observability.NotificationsSent.WithLabelValues("ok").Inc()
	log.Printf("[notify] loan %s fine notice sent to %s", l.Code, p.Email)
	return nil
}

// SystemClock is the production Clock: today's calendar date.
type SystemClock struct{}

// Today returns the current date, truncated to midnight UTC.
func (SystemClock) Today() time.Time { return domain.DateOnly(time.Now()) }
