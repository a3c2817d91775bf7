package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/circulo/circulo/internal/domain"
)

// AuthorStore implements domain.AuthorRepo.
type AuthorStore struct {
	db *DB
}

// NewAuthorStore returns a store backed by db.
func NewAuthorStore(db *DB) *AuthorStore { return &AuthorStore{db: db} }

func (s *AuthorStore) Create(ctx context.Context, a *domain.Author) error {
	res, err := s.db.db.ExecContext(ctx,
		`INSERT INTO authors (name, surname, bio) VALUES (?, ?, ?)`,
		a.Name, a.Surname, a.Bio)
	if err != nil {
		return fmt.Errorf("insert author: %w", err)
	}
	a.ID, err = res.LastInsertId()
	return err
}

func (s *AuthorStore) Get(ctx context.Context, id int64) (*domain.Author, error) {
	var a domain.Author
	err := s.db.db.QueryRowContext(ctx,
		`SELECT id, name, surname, bio FROM authors WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &a.Surname, &a.Bio)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get author %d: %w", id, err)
	}
	return &a, nil
}

func (s *AuthorStore) List(ctx context.Context) ([]domain.Author, error) {
	rows, err := s.db.db.QueryContext(ctx,
		`SELECT id, name, surname, bio FROM authors ORDER BY surname, name`)
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	defer rows.Close()

	var out []domain.Author
	for rows.Next() {
		var a domain.Author
		if err := rows.Scan(&a.ID, &a.Name, &a.Surname, &a.Bio); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Delete removes an author. Authors with titles in the catalog are
// protected.
func (s *AuthorStore) Delete(ctx context.Context, id int64) error {
	var refs int
	err := s.db.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM titles WHERE author_id = ?`, id).Scan(&refs)
	if err != nil {
		return fmt.Errorf("count titles for author %d: %w", id, err)
	}
	if refs > 0 {
		return &domain.ResourceError{
			Resource: fmt.Sprintf("author %d", id),
			Err:      domain.ErrReferentialBlock,
		}
	}
	res, err := s.db.db.ExecContext(ctx, `DELETE FROM authors WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete author %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
