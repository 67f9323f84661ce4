package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vgents/portaljuridico/internal/errs"
	"github.com/vgents/portaljuridico/internal/model"
)

// TermRepo implements TermRepository using PostgreSQL.
type TermRepo struct{ db *DB }

// NewTermRepo constructs a taxonomy repository.
func NewTermRepo(db *DB) *TermRepo { return &TermRepo{db: db} }

func scanTerm(row rowScanner) (*model.Term, error) {
	var (
		t    model.Term
		kind string
	)
	if err := row.Scan(&t.ID, &kind, &t.Nome, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Kind = model.TermKind(kind)
	return &t, nil
}

// List returns the terms of kind ordered by name.
func (r *TermRepo) List(ctx context.Context, kind model.TermKind) ([]model.Term, error) {
	const q = `SELECT id, kind, nome, created_at FROM terms WHERE kind=$1 ORDER BY nome, id`
	rows, err := r.db.Pool.Query(ctx, q, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Term, 0)
	for rows.Next() {
		t, err := scanTerm(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Create inserts t and fills its id and creation time.
func (r *TermRepo) Create(ctx context.Context, t *model.Term) error {
	const q = `INSERT INTO terms (kind, nome) VALUES ($1, $2) RETURNING id, created_at`
	err := r.db.Pool.QueryRow(ctx, q, string(t.Kind), t.Nome).Scan(&t.ID, &t.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%s %q: %w", t.Kind, t.Nome, errs.ErrAlreadyExists)
	}
	return err
}

// Rename changes the name of term id and returns the updated row.
func (r *TermRepo) Rename(ctx context.Context, id int64, nome string) (*model.Term, error) {
	const q = `UPDATE terms SET nome=$2 WHERE id=$1 RETURNING id, kind, nome, created_at`
	t, err := scanTerm(r.db.Pool.QueryRow(ctx, q, id, nome))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, errs.ErrNotFound
	case isUniqueViolation(err):
		return nil, fmt.Errorf("term %q: %w", nome, errs.ErrAlreadyExists)
	}
	return t, err
}
