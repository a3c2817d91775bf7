package domain

import (
	"context"
	"time"
)

// ─── Collaborator Interfaces ────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; the application layer depends on them.

// Clock supplies the current calendar date. Loan policy is date-based, so
// the application never reads time.Now directly.
type Clock interface {
	Today() time.Time
}

// Notifier sends an outbound message to a patron. Delivery failures are
// surfaced to the caller; nothing in the core retries.
type Notifier interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// AuthorRepo persists catalog authors. Delete fails with
// ErrReferentialBlock while titles reference the author.
type AuthorRepo interface {
	Create(ctx context.Context, a *Author) error
	Get(ctx context.Context, id int64) (*Author, error)
	List(ctx context.Context) ([]Author, error)
	Delete(ctx context.Context, id int64) error
}

// TitleRepo persists catalog titles. Delete fails with
// ErrReferentialBlock while loans reference the title.
type TitleRepo interface {
	Create(ctx context.Context, t *Title) error
	Get(ctx context.Context, id int64) (*Title, error)
	List(ctx context.Context) ([]Title, error)
	SetAvailable(ctx context.Context, id int64, available bool) error
	Delete(ctx context.Context, id int64) error
}

// PatronRepo persists library members.
type PatronRepo interface {
	Create(ctx context.Context, p *Patron) error
	Get(ctx context.Context, id int64) (*Patron, error)
	GetByIdentity(ctx context.Context, identity string) (*Patron, error)
	List(ctx context.Context) ([]Patron, error)
	Deactivate(ctx context.Context, id int64) error
}

// LoanRepo persists loans. Create allocates the loan's sequential code
// inside the insert transaction. Delete fails with ErrReferentialBlock
// while fines reference the loan.
type LoanRepo interface {
	Create(ctx context.Context, l *Loan) error
	Get(ctx context.Context, id int64) (*Loan, error)
	GetByCode(ctx context.Context, code string) (*Loan, error)
	Update(ctx context.Context, l *Loan) error
	Delete(ctx context.Context, id int64) error

	// CountOpenByTitle counts loans in Active or Delinquent state
	// against a title.
	CountOpenByTitle(ctx context.Context, titleID int64) (int, error)

	// ListOpenDueBefore returns open loans (Active or Delinquent) whose
	// due date is strictly before the given day — the overdue sweep's
	// selection. Including Delinquent loans keeps re-runs idempotent:
	// their fine amounts are refreshed without a second transition.
	ListOpenDueBefore(ctx context.Context, day time.Time) ([]Loan, error)
}

// FineRepo persists fines. Create allocates the fine's sequential code
// inside the insert transaction.
type FineRepo interface {
	Create(ctx context.Context, f *Fine) error
	GetByCode(ctx context.Context, code string) (*Fine, error)
	Update(ctx context.Context, f *Fine) error
	ListByLoan(ctx context.Context, loanID int64) ([]Fine, error)
	DeleteByLoan(ctx context.Context, loanID int64) error
}
