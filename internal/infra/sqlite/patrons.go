package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/circulo/circulo/internal/domain"
)

// PatronStore implements domain.PatronRepo.
type PatronStore struct {
	db *DB
}

// NewPatronStore returns a store backed by db.
func NewPatronStore(db *DB) *PatronStore { return &PatronStore{db: db} }

func (s *PatronStore) Create(ctx context.Context, p *domain.Patron) error {
	res, err := s.db.db.ExecContext(ctx,
		`INSERT INTO patrons (name, identity, email, category, active)
		 VALUES (?, ?, ?, ?, ?)`,
		p.Name, p.Identity, p.Email, string(p.Category), p.Active)
	if err != nil {
		return fmt.Errorf("insert patron: %w", err)
	}
	p.ID, err = res.LastInsertId()
	return err
}

func (s *PatronStore) Get(ctx context.Context, id int64) (*domain.Patron, error) {
	return s.getWhere(ctx, `id = ?`, id)
}

func (s *PatronStore) GetByIdentity(ctx context.Context, identity string) (*domain.Patron, error) {
	return s.getWhere(ctx, `identity = ?`, identity)
}

func (s *PatronStore) getWhere(ctx context.Context, where string, arg any) (*domain.Patron, error) {
	var p domain.Patron
	var category string
	err := s.db.db.QueryRowContext(ctx,
		`SELECT id, name, identity, email, category, active FROM patrons WHERE `+where, arg).
		Scan(&p.ID, &p.Name, &p.Identity, &p.Email, &category, &p.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get patron: %w", err)
	}
	p.Category = domain.PatronCategory(category)
	return &p, nil
}

func (s *PatronStore) List(ctx context.Context) ([]domain.Patron, error) {
	rows, err := s.db.db.QueryContext(ctx,
		`SELECT id, name, identity, email, category, active FROM patrons ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list patrons: %w", err)
	}
	defer rows.Close()

	var out []domain.Patron
	for rows.Next() {
		var p domain.Patron
		var category string
		if err := rows.Scan(&p.ID, &p.Name, &p.Identity, &p.Email, &category, &p.Active); err != nil {
			return nil, err
		}
		p.Category = domain.PatronCategory(category)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Deactivate soft-disables a patron. The row stays so historical loans
// keep their reference.
func (s *PatronStore) Deactivate(ctx context.Context, id int64) error {
	res, err := s.db.db.ExecContext(ctx,
		`UPDATE patrons SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivate patron %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
