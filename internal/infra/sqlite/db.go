// Package sqlite implements the domain repositories on an embedded
// SQLite database (pure-Go driver, no CGO).
//
// The connection pool is pinned to a single connection so every write
// transaction is serialized by the database itself; sequential code
// allocation additionally holds a per-sequence mutex so two concurrent
// inserts can never observe the same last code.
package sqlite

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Default sequential code prefixes for loans and fines.
const (
	DefaultLoanPrefix = "BLB"
	DefaultFinePrefix = "MLT"
)

// DB wraps the SQLite handle shared by the entity stores.
type DB struct {
	db      *sql.DB
	loanSeq sync.Mutex
	fineSeq sync.Mutex
}

// Open opens (and migrates) the circulation database at path.
// Use ":memory:" for an ephemeral database.
func Open(path string) (*DB, error) {
	sdb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One connection: SQLite is a single-writer engine, and an in-memory
	// database exists per connection.
	sdb.SetMaxOpenConns(1)

	if _, err := sdb.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		sdb.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	for _, stmt := range Migrations() {
		if _, err := sdb.Exec(stmt); err != nil {
			sdb.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return &DB{db: sdb}, nil
}

// Close releases the database handle.
func (db *DB) Close() error { return db.db.Close() }

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS authors (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			name    TEXT NOT NULL,
			surname TEXT NOT NULL,
			bio     TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS titles (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			name             TEXT NOT NULL,
			author_id        INTEGER NOT NULL REFERENCES authors(id),
			total_copies     INTEGER NOT NULL DEFAULT 0 CHECK(total_copies >= 0),
			replacement_cost REAL NOT NULL DEFAULT 0,
			available        INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE INDEX IF NOT EXISTS idx_titles_author ON titles(author_id)`,

		`CREATE TABLE IF NOT EXISTS patrons (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			name     TEXT NOT NULL,
			identity TEXT NOT NULL UNIQUE,
			email    TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL,
			active   INTEGER NOT NULL DEFAULT 1
		)`,

		`CREATE TABLE IF NOT EXISTS loans (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			code        TEXT NOT NULL UNIQUE,
			title_id    INTEGER NOT NULL REFERENCES titles(id),
			patron_id   INTEGER REFERENCES patrons(id),
			loan_date   TEXT NOT NULL,
			due_date    TEXT,
			return_date TEXT,
			state       TEXT NOT NULL DEFAULT 'DRAFT',
			condition   TEXT NOT NULL DEFAULT 'GOOD'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_loans_title ON loans(title_id)`,
		`CREATE INDEX IF NOT EXISTS idx_loans_state ON loans(state)`,
		`CREATE INDEX IF NOT EXISTS idx_loans_due ON loans(due_date)`,

		`CREATE TABLE IF NOT EXISTS fines (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			code       TEXT NOT NULL UNIQUE,
			loan_id    INTEGER NOT NULL REFERENCES loans(id),
			category   TEXT NOT NULL,
			amount     REAL NOT NULL DEFAULT 0,
			paid       INTEGER NOT NULL DEFAULT 0,
			issue_date TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fines_loan ON fines(loan_id)`,
	}
}

// ─── Date Helpers ───────────────────────────────────────────────────────────
// Calendar dates are stored as ISO "2006-01-02" TEXT.

func fmtDate(t time.Time) string { return t.UTC().Format(time.DateOnly) }

func parseDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}

func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtDate(*t)
}

func scanNullDate(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseDate(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
