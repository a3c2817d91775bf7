package domain

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ─── Availability ───────────────────────────────────────────────────────────

func TestAvailableCopies(t *testing.T) {
	tests := []struct {
		name  string
		total int
		open  int
		want  int
	}{
		{"no loans", 3, 0, 3},
		{"some loans", 3, 2, 1},
		{"exhausted", 3, 3, 0},
		{"inconsistent store clamps to zero", 1, 2, 0},
		{"zero copies", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AvailableCopies(tt.total, tt.open)
			if got != tt.want {
				t.Errorf("AvailableCopies(%d, %d) = %d, want %d", tt.total, tt.open, got, tt.want)
			}
			if got > tt.total {
				t.Errorf("available %d exceeds total %d", got, tt.total)
			}
			if got < 0 {
				t.Errorf("available %d is negative", got)
			}
		})
	}
}

// ─── Loan ───────────────────────────────────────────────────────────────────

func TestLoan_Open(t *testing.T) {
	tests := []struct {
		state LoanState
		want  bool
	}{
		{LoanDraft, false},
		{LoanActive, true},
		{LoanDelinquent, true},
		{LoanReturned, false},
	}
	for _, tt := range tests {
		l := Loan{State: tt.state}
		if got := l.Open(); got != tt.want {
			t.Errorf("Open() in state %s = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestLoan_DaysLate(t *testing.T) {
	due := date(2026, time.March, 10)
	returned := date(2026, time.March, 13)

	tests := []struct {
		name  string
		loan  Loan
		today time.Time
		want  int
	}{
		{"no due date", Loan{}, date(2026, time.March, 20), 0},
		{"before due", Loan{DueDate: &due}, date(2026, time.March, 8), 0},
		{"on due day", Loan{DueDate: &due}, due, 0},
		{"five days late", Loan{DueDate: &due}, date(2026, time.March, 15), 5},
		{"closed loan uses return date", Loan{DueDate: &due, ReturnDate: &returned}, date(2026, time.March, 30), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loan.DaysLate(tt.today); got != tt.want {
				t.Errorf("DaysLate() = %d, want %d", got, tt.want)
			}
		})
	}
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func TestDaysBetween(t *testing.T) {
	a := date(2026, time.January, 1)
	b := date(2026, time.January, 6)
	if got := DaysBetween(a, b); got != 5 {
		t.Errorf("DaysBetween = %d, want 5", got)
	}
	if got := DaysBetween(b, a); got != -5 {
		t.Errorf("DaysBetween reversed = %d, want -5", got)
	}
	// Intra-day timestamps must not change the day count.
	late := time.Date(2026, time.January, 6, 23, 59, 0, 0, time.UTC)
	if got := DaysBetween(a, late); got != 5 {
		t.Errorf("DaysBetween with time-of-day = %d, want 5", got)
	}
}

func TestRoundCurrency(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{10.005, 10.01},
		{10.004, 10.0},
		{0.1 + 0.2, 0.3},
		{5.0, 5.0},
	}
	for _, tt := range tests {
		if got := RoundCurrency(tt.in); got != tt.want {
			t.Errorf("RoundCurrency(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
