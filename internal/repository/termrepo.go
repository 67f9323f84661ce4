package repository

import (
	"context"

	"github.com/vgents/portaljuridico/internal/model"
)

// TermRepository stores the subject and category taxonomies.
type TermRepository interface {
	// List returns the terms of one kind ordered by name.
	List(ctx context.Context, kind model.TermKind) ([]model.Term, error)
	// Create inserts a term; names are unique per kind, case-insensitively.
	Create(ctx context.Context, t *model.Term) error
	// Rename changes the name of a term.
	Rename(ctx context.Context, id int64, nome string) (*model.Term, error)
}
