// Package circulation implements the loan lifecycle core: the loan state
// machine, the fine ledger, and the overdue sweep.
//
// The service owns every Loan state transition:
//
//	Draft → Active → Returned
//	Draft → Active → Delinquent → Returned
//
// It depends only on the domain repository interfaces, a Clock, and a
// Notifier; callers (HTTP API, CLI, external scheduler) invoke its
// operations and own when they run.
package circulation

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/circulo/circulo/internal/domain"
	"github.com/circulo/circulo/internal/infra/observability"
)

// Policy holds the circulation policy constants.
type Policy struct {
	LoanPeriodDays   int     // days from activation to due date
	OverdueDailyRate float64 // fine per day late
	DamagedFactor    float64 // fraction of replacement cost
	LostFactor       float64 // multiple of replacement cost
}

// DefaultPolicy returns the library's standard policy.
func DefaultPolicy() Policy {
	return Policy{
		LoanPeriodDays:   2,
		OverdueDailyRate: 1.0,
		DamagedFactor:    0.5,
		LostFactor:       2.0,
	}
}

// Service is the circulation core. All loan and title mutations go through
// it; a single mutex serializes them so that read-validate-write sequences
// (activation against the last copy, return, sweep-per-loan) are atomic
// against each other.
type Service struct {
	mu       sync.Mutex
	clock    domain.Clock
	authors  domain.AuthorRepo
	titles   domain.TitleRepo
	patrons  domain.PatronRepo
	loans    domain.LoanRepo
	ledger   *Ledger
	notifier domain.Notifier
	policy   Policy
}

// New creates the circulation service.
func New(clock domain.Clock, authors domain.AuthorRepo, titles domain.TitleRepo,
	patrons domain.PatronRepo, loans domain.LoanRepo, fines domain.FineRepo,
	notifier domain.Notifier, policy Policy) *Service {
	return &Service{
		clock:    clock,
		authors:  authors,
		titles:   titles,
		patrons:  patrons,
		loans:    loans,
		ledger:   NewLedger(fines),
		notifier: notifier,
		policy:   policy,
	}
}

// Ledger returns the fine ledger.
func (s *Service) Ledger() *Ledger { return s.ledger }

// ─── Catalog Operations ─────────────────────────────────────────────────────

// AddAuthor registers a catalog author.
func (s *Service) AddAuthor(ctx context.Context, name, surname, bio string) (*domain.Author, error) {
	if name == "" {
		return nil, &domain.ValidationError{Field: "name", Err: fmt.Errorf("must not be empty")}
	}
	a := &domain.Author{Name: name, Surname: surname, Bio: bio}
	if err := s.authors.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create author: %w", err)
	}
	return a, nil
}

// AddTitle registers a catalog title. New titles start available whenever
// they carry at least one copy.
func (s *Service) AddTitle(ctx context.Context, name string, authorID int64, totalCopies int, replacementCost float64) (*domain.Title, error) {
	if name == "" {
		return nil, &domain.ValidationError{Field: "name", Err: fmt.Errorf("must not be empty")}
	}
	if totalCopies < 0 {
		return nil, &domain.ValidationError{Field: "total_copies", Err: fmt.Errorf("must not be negative")}
	}
	if _, err := s.authors.Get(ctx, authorID); err != nil {
		return nil, fmt.Errorf("author %d: %w", authorID, err)
	}
	t := &domain.Title{
		Name:            name,
		AuthorID:        authorID,
		TotalCopies:     totalCopies,
		ReplacementCost: domain.RoundCurrency(replacementCost),
		Available:       totalCopies > 0,
	}
	if err := s.titles.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create title: %w", err)
	}
	return t, nil
}

// Titles lists the catalog.
func (s *Service) Titles(ctx context.Context) ([]domain.Title, error) {
	return s.titles.List(ctx)
}

// AvailableCopies computes how many free copies a title has right now.
func (s *Service) AvailableCopies(ctx context.Context, titleID int64) (int, error) {
	t, err := s.titles.Get(ctx, titleID)
	if err != nil {
		return 0, err
	}
	open, err := s.loans.CountOpenByTitle(ctx, titleID)
	if err != nil {
		return 0, err
	}
	return domain.AvailableCopies(t.TotalCopies, open), nil
}

// ─── Patron Operations ──────────────────────────────────────────────────────

// RegisterPatron validates the national identity code and creates the
// patron record.
func (s *Service) RegisterPatron(ctx context.Context, name, identity, email string, category domain.PatronCategory) (*domain.Patron, error) {
	if name == "" {
		return nil, &domain.ValidationError{Field: "name", Err: fmt.Errorf("must not be empty")}
	}
	if err := domain.ValidateIdentity(identity); err != nil {
		return nil, err
	}
	switch category {
	case domain.PatronStudent, domain.PatronStaff, domain.PatronExternal:
	default:
		return nil, &domain.ValidationError{Field: "category", Err: fmt.Errorf("unknown category %q", category)}
	}
	p := &domain.Patron{Name: name, Identity: identity, Email: email, Category: category, Active: true}
	if err := s.patrons.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create patron: %w", err)
	}
	return p, nil
}

// Patrons lists registered members.
func (s *Service) Patrons(ctx context.Context) ([]domain.Patron, error) {
	return s.patrons.List(ctx)
}

// DeactivatePatron soft-deactivates a member. Patron records are never
// deleted.
func (s *Service) DeactivatePatron(ctx context.Context, id int64) error {
	return s.patrons.Deactivate(ctx, id)
}

// ─── Loan State Machine ─────────────────────────────────────────────────────

// CreateDraft opens a loan in Draft state. The patron may be assigned
// later, but must be present before activation.
func (s *Service) CreateDraft(ctx context.Context, titleID int64, patronID *int64) (*domain.Loan, error) {
	if _, err := s.titles.Get(ctx, titleID); err != nil {
		return nil, fmt.Errorf("title %d: %w", titleID, err)
	}
	if patronID != nil {
		if _, err := s.patrons.Get(ctx, *patronID); err != nil {
			return nil, fmt.Errorf("patron %d: %w", *patronID, err)
		}
	}
	l := &domain.Loan{
		TitleID:   titleID,
		PatronID:  patronID,
		LoanDate:  domain.DateOnly(s.clock.Today()),
		State:     domain.LoanDraft,
		Condition: domain.ConditionGood,
	}
	if err := s.loans.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("create loan: %w", err)
	}
	log.Printf("[circulation] loan %s drafted for title %d", l.Code, titleID)
	return l, nil
}

// AssignPatron sets the patron on a Draft loan.
func (s *Service) AssignPatron(ctx context.Context, code string, patronID int64) (*domain.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.loans.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if l.State != domain.LoanDraft {
		return nil, &domain.StateError{Code: l.Code, State: l.State, Err: domain.ErrAlreadyActivated}
	}
	if _, err := s.patrons.Get(ctx, patronID); err != nil {
		return nil, fmt.Errorf("patron %d: %w", patronID, err)
	}
	l.PatronID = &patronID
	if err := s.loans.Update(ctx, l); err != nil {
		return nil, fmt.Errorf("update loan: %w", err)
	}
	return l, nil
}

// Loan fetches a loan by its code.
func (s *Service) Loan(ctx context.Context, code string) (*domain.Loan, error) {
	return s.loans.GetByCode(ctx, code)
}

// Activate moves a Draft loan to Active, reserving one copy of the title.
//
// Preconditions: the loan is a Draft, has a patron assigned, and the title
// has at least one free copy. The due date is set exactly once here
// (loan date + policy period) unless a due date was fixed on the draft.
// When the activation consumes the last free copy, the title's cached
// availability flag is switched off.
func (s *Service) Activate(ctx context.Context, code string) (*domain.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.loans.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if l.State != domain.LoanDraft {
		observability.LoanStateRejections.WithLabelValues("already_activated").Inc()
		return nil, &domain.StateError{Code: l.Code, State: l.State, Err: domain.ErrAlreadyActivated}
	}
	if l.PatronID == nil {
		observability.LoanStateRejections.WithLabelValues("missing_patron").Inc()
		return nil, &domain.StateError{Code: l.Code, State: l.State, Err: domain.ErrMissingPatron}
	}

	t, err := s.titles.Get(ctx, l.TitleID)
	if err != nil {
		return nil, fmt.Errorf("title %d: %w", l.TitleID, err)
	}
	open, err := s.loans.CountOpenByTitle(ctx, l.TitleID)
	if err != nil {
		return nil, fmt.Errorf("count open loans: %w", err)
	}
	free := domain.AvailableCopies(t.TotalCopies, open)
	if free <= 0 {
		observability.LoanStateRejections.WithLabelValues("no_copies").Inc()
		return nil, &domain.ResourceError{Resource: t.Name, Err: domain.ErrNoCopiesAvailable}
	}

	if l.DueDate == nil {
		due := domain.DateOnly(s.clock.Today()).AddDate(0, 0, s.policy.LoanPeriodDays)
		l.DueDate = &due
	}
	l.State = domain.LoanActive
	if err := s.loans.Update(ctx, l); err != nil {
		return nil, fmt.Errorf("update loan: %w", err)
	}

	// Last free copy consumed: flip the cached availability flag.
	if free == 1 {
		if err := s.titles.SetAvailable(ctx, t.ID, false); err != nil {
			return nil, fmt.Errorf("mark title unavailable: %w", err)
		}
	}

	observability.LoansActivated.Inc()
	log.Printf("[circulation] loan %s activated, due %s", l.Code, l.DueDate.Format(time.DateOnly))
	return l, nil
}

// Return closes an Active or Delinquent loan and settles its fines.
//
// Lost supersedes everything: all prior fines on the loan are removed, one
// Lost fine is issued at LostFactor × replacement cost, and no damage or
// overdue fines are considered. Otherwise a Damaged condition issues a
// Damaged fine at DamagedFactor × replacement cost, a late return upserts
// the Overdue fine at days-late × daily rate, and the title's availability
// flag is restored.
//
// The returned string is an operator-facing summary of the loan's total
// fine amount (paid and unpaid).
func (s *Service) Return(ctx context.Context, code string, condition domain.ReturnCondition) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.loans.GetByCode(ctx, code)
	if err != nil {
		return "", err
	}
	if !l.Open() {
		observability.LoanStateRejections.WithLabelValues("not_returnable").Inc()
		return "", &domain.StateError{Code: l.Code, State: l.State, Err: domain.ErrNotReturnable}
	}

	t, err := s.titles.Get(ctx, l.TitleID)
	if err != nil {
		return "", fmt.Errorf("title %d: %w", l.TitleID, err)
	}
	today := domain.DateOnly(s.clock.Today())
	l.Condition = condition

	if condition == domain.ConditionLost {
		amount := s.policy.LostFactor * t.ReplacementCost
		fine, _, err := s.ledger.Issue(ctx, l, domain.FineLost, amount, today)
		if err != nil {
			return "", fmt.Errorf("issue lost fine: %w", err)
		}
		l.State = domain.LoanReturned
		l.ReturnDate = &today
		if err := s.loans.Update(ctx, l); err != nil {
			return "", fmt.Errorf("update loan: %w", err)
		}
		observability.LoansReturned.WithLabelValues(string(condition)).Inc()
		log.Printf("[circulation] loan %s returned lost, fine %s %.2f", l.Code, fine.Code, fine.Amount)
		return fmt.Sprintf("loan %s returned: lost, fine=%.2f", l.Code, fine.Amount), nil
	}

	if condition == domain.ConditionDamaged {
		amount := s.policy.DamagedFactor * t.ReplacementCost
		if _, _, err := s.ledger.Issue(ctx, l, domain.FineDamaged, amount, today); err != nil {
			return "", fmt.Errorf("issue damaged fine: %w", err)
		}
	}

	if daysLate := l.DaysLate(today); daysLate > 0 {
		amount := float64(daysLate) * s.policy.OverdueDailyRate
		if _, _, err := s.ledger.Issue(ctx, l, domain.FineOverdue, amount, today); err != nil {
			return "", fmt.Errorf("issue overdue fine: %w", err)
		}
	}

	l.State = domain.LoanReturned
	l.ReturnDate = &today
	if err := s.loans.Update(ctx, l); err != nil {
		return "", fmt.Errorf("update loan: %w", err)
	}
	if err := s.titles.SetAvailable(ctx, t.ID, true); err != nil {
		return "", fmt.Errorf("restore title availability: %w", err)
	}

	observability.LoansReturned.WithLabelValues(string(condition)).Inc()

	total, err := s.ledger.Total(ctx, l.ID)
	if err != nil {
		return "", fmt.Errorf("sum fines: %w", err)
	}
	log.Printf("[circulation] loan %s returned %s, fines total %.2f", l.Code, condition, total)
	if total == 0 {
		return fmt.Sprintf("loan %s returned: no fines", l.Code), nil
	}
	return fmt.Sprintf("loan %s returned: fines total=%.2f", l.Code, total), nil
}
