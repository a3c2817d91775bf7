// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of the application — it depends on nothing.
package domain

import (
	"math"
	"time"
)

// ─── Catalog Types ──────────────────────────────────────────────────────────

// Author is a catalog author entry.
type Author struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Bio     string `json:"bio,omitempty"`
}

// Title is a catalog book entry. Physical copies are tracked in aggregate:
// TotalCopies counts them, Available is a cached flag recomputed after
// every loan activation and return.
type Title struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	AuthorID        int64   `json:"author_id"`
	TotalCopies     int     `json:"total_copies"`
	ReplacementCost float64 `json:"replacement_cost"`
	Available       bool    `json:"available"`
}

// ─── Patron Types ───────────────────────────────────────────────────────────

// PatronCategory classifies a library member.
type PatronCategory string

const (
	PatronStudent  PatronCategory = "STUDENT"
	PatronStaff    PatronCategory = "STAFF"
	PatronExternal PatronCategory = "EXTERNAL"
)

// Patron is a registered library member. Identity is the 10-digit national
// identity code validated by ValidateIdentity. Patrons are deactivated,
// never deleted.
type Patron struct {
	ID       int64          `json:"id"`
	Name     string         `json:"name"`
	Identity string         `json:"identity"`
	Email    string         `json:"email"`
	Category PatronCategory `json:"category"`
	Active   bool           `json:"active"`
}

// ─── Loan Types ─────────────────────────────────────────────────────────────

// LoanState is the lifecycle state of a loan.
// Draft → Active → (Delinquent →) Returned; nothing leaves Returned.
type LoanState string

const (
	LoanDraft      LoanState = "DRAFT"
	LoanActive     LoanState = "ACTIVE"
	LoanDelinquent LoanState = "DELINQUENT"
	LoanReturned   LoanState = "RETURNED"
)

// ReturnCondition tags the physical condition a copy came back in.
type ReturnCondition string

const (
	ConditionGood    ReturnCondition = "GOOD"
	ConditionDamaged ReturnCondition = "DAMAGED"
	ConditionLost    ReturnCondition = "LOST"
)

// Loan is one lending transaction of a Title to a Patron.
//
// PatronID is nil only while the loan is a Draft. DueDate is set exactly
// once, at activation. ReturnDate is set exactly once, at return.
type Loan struct {
	ID         int64           `json:"id"`
	Code       string          `json:"code"`
	TitleID    int64           `json:"title_id"`
	PatronID   *int64          `json:"patron_id,omitempty"`
	LoanDate   time.Time       `json:"loan_date"`
	DueDate    *time.Time      `json:"due_date,omitempty"`
	ReturnDate *time.Time      `json:"return_date,omitempty"`
	State      LoanState       `json:"state"`
	Condition  ReturnCondition `json:"condition"`
}

// Open reports whether the loan still holds a physical copy.
func (l *Loan) Open() bool {
	return l.State == LoanActive || l.State == LoanDelinquent
}

// DaysLate returns the whole days past the due date. The return date is
// the reference once the loan is closed, otherwise today. Zero when the
// loan has no due date or is not overdue.
func (l *Loan) DaysLate(today time.Time) int {
	if l.DueDate == nil {
		return 0
	}
	ref := today
	if l.ReturnDate != nil {
		ref = *l.ReturnDate
	}
	late := DaysBetween(*l.DueDate, ref)
	if late < 0 {
		return 0
	}
	return late
}

// ─── Fine Types ─────────────────────────────────────────────────────────────

// FineCategory is the business reason a fine was issued.
type FineCategory string

const (
	FineOverdue FineCategory = "OVERDUE"
	FineDamaged FineCategory = "DAMAGED"
	FineLost    FineCategory = "LOST"
)

// Fine is a monetary penalty tied to one loan.
type Fine struct {
	ID        int64        `json:"id"`
	Code      string       `json:"code"`
	LoanID    int64        `json:"loan_id"`
	Category  FineCategory `json:"category"`
	Amount    float64      `json:"amount"`
	Paid      bool         `json:"paid"`
	IssueDate time.Time    `json:"issue_date"`
}

// ─── Copy Availability ──────────────────────────────────────────────────────

// AvailableCopies computes how many physical copies of a title are free.
// openLoans is the count of loans in Active or Delinquent state against the
// title. A consistent store never yields a negative result, but the value
// is clamped at zero so inconsistent data cannot surface as "-1 copies".
func AvailableCopies(totalCopies, openLoans int) int {
	free := totalCopies - openLoans
	if free < 0 {
		return 0
	}
	return free
}

// ─── Date and Currency Helpers ──────────────────────────────────────────────

// DateOnly truncates a timestamp to midnight UTC. Loan and fine dates are
// calendar dates; comparing anything finer invites off-by-one fines.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole calendar days from a to b (negative when b
// precedes a).
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}

// RoundCurrency rounds to 2 decimal places (currency precision).
func RoundCurrency(v float64) float64 {
	return math.Round(v*100) / 100
}
