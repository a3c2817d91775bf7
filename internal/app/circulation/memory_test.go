package circulation

// In-memory repositories for exercising the state machine without a
// database. Create/Get hand out copies so the fakes behave like a real
// store: mutations only land via Update.

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/circulo/circulo/internal/domain"
)

type fixedClock struct{ day time.Time }

func (c *fixedClock) Today() time.Time { return c.day }

type fakeNotifier struct {
	mu       sync.Mutex
	sent     []string // "recipient|subject"
	lastBody string
	fail     error
}

func (n *fakeNotifier) Send(_ context.Context, recipient, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.sent = append(n.sent, recipient+"|"+subject)
	n.lastBody = body
	return nil
}

type memDB struct {
	mu      sync.Mutex
	nextID  int64
	authors []domain.Author
	titles  []domain.Title
	patrons []domain.Patron
	loans   []domain.Loan
	fines   []domain.Fine
}

func (db *memDB) id() int64 {
	db.nextID++
	return db.nextID
}

// ─── Authors ────────────────────────────────────────────────────────────────

type memAuthors struct{ db *memDB }

func (r memAuthors) Create(_ context.Context, a *domain.Author) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a.ID = r.db.id()
	r.db.authors = append(r.db.authors, *a)
	return nil
}

func (r memAuthors) Get(_ context.Context, id int64) (*domain.Author, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, a := range r.db.authors {
		if a.ID == id {
			out := a
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memAuthors) List(_ context.Context) ([]domain.Author, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return append([]domain.Author(nil), r.db.authors...), nil
}

func (r memAuthors) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, t := range r.db.titles {
		if t.AuthorID == id {
			return &domain.ResourceError{Resource: fmt.Sprintf("author %d", id), Err: domain.ErrReferentialBlock}
		}
	}
	for i, a := range r.db.authors {
		if a.ID == id {
			r.db.authors = append(r.db.authors[:i], r.db.authors[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

// ─── Titles ─────────────────────────────────────────────────────────────────

type memTitles struct{ db *memDB }

func (r memTitles) Create(_ context.Context, t *domain.Title) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t.ID = r.db.id()
	r.db.titles = append(r.db.titles, *t)
	return nil
}

func (r memTitles) Get(_ context.Context, id int64) (*domain.Title, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, t := range r.db.titles {
		if t.ID == id {
			out := t
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memTitles) List(_ context.Context) ([]domain.Title, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return append([]domain.Title(nil), r.db.titles...), nil
}

func (r memTitles) SetAvailable(_ context.Context, id int64, available bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i := range r.db.titles {
		if r.db.titles[i].ID == id {
			r.db.titles[i].Available = available
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r memTitles) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, l := range r.db.loans {
		if l.TitleID == id {
			return &domain.ResourceError{Resource: fmt.Sprintf("title %d", id), Err: domain.ErrReferentialBlock}
		}
	}
	for i, t := range r.db.titles {
		if t.ID == id {
			r.db.titles = append(r.db.titles[:i], r.db.titles[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

// ─── Patrons ────────────────────────────────────────────────────────────────

type memPatrons struct{ db *memDB }

func (r memPatrons) Create(_ context.Context, p *domain.Patron) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p.ID = r.db.id()
	r.db.patrons = append(r.db.patrons, *p)
	return nil
}

func (r memPatrons) Get(_ context.Context, id int64) (*domain.Patron, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.patrons {
		if p.ID == id {
			out := p
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memPatrons) GetByIdentity(_ context.Context, identity string) (*domain.Patron, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.patrons {
		if p.Identity == identity {
			out := p
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memPatrons) List(_ context.Context) ([]domain.Patron, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return append([]domain.Patron(nil), r.db.patrons...), nil
}

func (r memPatrons) Deactivate(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i := range r.db.patrons {
		if r.db.patrons[i].ID == id {
			r.db.patrons[i].Active = false
			return nil
		}
	}
	return domain.ErrNotFound
}

// ─── Loans ──────────────────────────────────────────────────────────────────

type memLoans struct{ db *memDB }

func (r memLoans) Create(_ context.Context, l *domain.Loan) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	last := ""
	if n := len(r.db.loans); n > 0 {
		last = r.db.loans[n-1].Code
	}
	l.ID = r.db.id()
	l.Code = domain.NextCode("BLB", last)
	r.db.loans = append(r.db.loans, *l)
	return nil
}

func (r memLoans) Get(_ context.Context, id int64) (*domain.Loan, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, l := range r.db.loans {
		if l.ID == id {
			out := l
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memLoans) GetByCode(_ context.Context, code string) (*domain.Loan, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, l := range r.db.loans {
		if l.Code == code {
			out := l
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memLoans) Update(_ context.Context, l *domain.Loan) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i := range r.db.loans {
		if r.db.loans[i].ID == l.ID {
			r.db.loans[i] = *l
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r memLoans) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, f := range r.db.fines {
		if f.LoanID == id {
			return &domain.ResourceError{Resource: fmt.Sprintf("loan %d", id), Err: domain.ErrReferentialBlock}
		}
	}
	for i, l := range r.db.loans {
		if l.ID == id {
			r.db.loans = append(r.db.loans[:i], r.db.loans[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r memLoans) CountOpenByTitle(_ context.Context, titleID int64) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := 0
	for i := range r.db.loans {
		if r.db.loans[i].TitleID == titleID && r.db.loans[i].Open() {
			n++
		}
	}
	return n, nil
}

func (r memLoans) ListOpenDueBefore(_ context.Context, day time.Time) ([]domain.Loan, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.Loan
	for _, l := range r.db.loans {
		if l.Open() && l.DueDate != nil && l.DueDate.Before(day) {
			out = append(out, l)
		}
	}
	return out, nil
}

// ─── Fines ──────────────────────────────────────────────────────────────────

type memFines struct{ db *memDB }

func (r memFines) Create(_ context.Context, f *domain.Fine) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	last := ""
	if n := len(r.db.fines); n > 0 {
		last = r.db.fines[n-1].Code
	}
	f.ID = r.db.id()
	f.Code = domain.NextCode("MLT", last)
	r.db.fines = append(r.db.fines, *f)
	return nil
}

func (r memFines) GetByCode(_ context.Context, code string) (*domain.Fine, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, f := range r.db.fines {
		if f.Code == code {
			out := f
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memFines) Update(_ context.Context, f *domain.Fine) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i := range r.db.fines {
		if r.db.fines[i].ID == f.ID {
			r.db.fines[i] = *f
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r memFines) ListByLoan(_ context.Context, loanID int64) ([]domain.Fine, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []domain.Fine
	for _, f := range r.db.fines {
		if f.LoanID == loanID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r memFines) DeleteByLoan(_ context.Context, loanID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	kept := r.db.fines[:0]
	for _, f := range r.db.fines {
		if f.LoanID != loanID {
			kept = append(kept, f)
		}
	}
	r.db.fines = kept
	return nil
}

// ─── Harness ────────────────────────────────────────────────────────────────

type testEnv struct {
	svc      *Service
	db       *memDB
	clock    *fixedClock
	notifier *fakeNotifier
}

func newTestEnv(day time.Time) *testEnv {
	db := &memDB{}
	clock := &fixedClock{day: day}
	notifier := &fakeNotifier{}
	svc := New(clock, memAuthors{db}, memTitles{db}, memPatrons{db},
		memLoans{db}, memFines{db}, notifier, DefaultPolicy())
	return &testEnv{svc: svc, db: db, clock: clock, notifier: notifier}
}

// seedLoan creates an author, a title, a patron and a draft loan.
func (e *testEnv) seedLoan(copies int, cost float64) (*domain.Title, *domain.Patron, *domain.Loan) {
	ctx := context.Background()
	a, err := e.svc.AddAuthor(ctx, "Isaac", "Asimov", "")
	if err != nil {
		panic(err)
	}
	t, err := e.svc.AddTitle(ctx, "Fundacion", a.ID, copies, cost)
	if err != nil {
		panic(err)
	}
	p, err := e.svc.RegisterPatron(ctx, "Juan Perez", "0926687856", "juan@example.com", domain.PatronStudent)
	if err != nil {
		panic(err)
	}
	l, err := e.svc.CreateDraft(ctx, t.ID, &p.ID)
	if err != nil {
		panic(err)
	}
	return t, p, l
}
