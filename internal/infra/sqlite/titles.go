package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/circulo/circulo/internal/domain"
)

// TitleStore implements domain.TitleRepo.
type TitleStore struct {
	db *DB
}

// NewTitleStore returns a store backed by db.
func NewTitleStore(db *DB) *TitleStore { return &TitleStore{db: db} }

func (s *TitleStore) Create(ctx context.Context, t *domain.Title) error {
	res, err := s.db.db.ExecContext(ctx,
		`INSERT INTO titles (name, author_id, total_copies, replacement_cost, available)
		 VALUES (?, ?, ?, ?, ?)`,
		t.Name, t.AuthorID, t.TotalCopies, t.ReplacementCost, t.Available)
	if err != nil {
		return fmt.Errorf("insert title: %w", err)
	}
	t.ID, err = res.LastInsertId()
	return err
}

func (s *TitleStore) Get(ctx context.Context, id int64) (*domain.Title, error) {
	var t domain.Title
	err := s.db.db.QueryRowContext(ctx,
		`SELECT id, name, author_id, total_copies, replacement_cost, available
		 FROM titles WHERE id = ?`, id).
		Scan(&t.ID, &t.Name, &t.AuthorID, &t.TotalCopies, &t.ReplacementCost, &t.Available)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get title %d: %w", id, err)
	}
	return &t, nil
}

func (s *TitleStore) List(ctx context.Context) ([]domain.Title, error) {
	rows, err := s.db.db.QueryContext(ctx,
		`SELECT id, name, author_id, total_copies, replacement_cost, available
		 FROM titles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}
	defer rows.Close()

	var out []domain.Title
	for rows.Next() {
		var t domain.Title
		if err := rows.Scan(&t.ID, &t.Name, &t.AuthorID, &t.TotalCopies,
			&t.ReplacementCost, &t.Available); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SetAvailable updates the cached availability flag.
func (s *TitleStore) SetAvailable(ctx context.Context, id int64, available bool) error {
	res, err := s.db.db.ExecContext(ctx,
		`UPDATE titles SET available = ? WHERE id = ?`, available, id)
	if err != nil {
		return fmt.Errorf("set title %d availability: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a title. Titles with loans on record are protected,
// whatever state those loans are in.
func (s *TitleStore) Delete(ctx context.Context, id int64) error {
	var refs int
	err := s.db.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loans WHERE title_id = ?`, id).Scan(&refs)
	if err != nil {
		return fmt.Errorf("count loans for title %d: %w", id, err)
	}
	if refs > 0 {
		return &domain.ResourceError{
			Resource: fmt.Sprintf("title %d", id),
			Err:      domain.ErrReferentialBlock,
		}
	}
	res, err := s.db.db.ExecContext(ctx, `DELETE FROM titles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete title %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
