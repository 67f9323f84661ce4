package repository

import (
	"context"

	"github.com/vgents/portaljuridico/internal/model"
)

// DocumentRepository is the persistent collection of legal documents.
// Every method except Open fails with errs.ErrStoreClosed until Open succeeds.
type DocumentRepository interface {
	// Open prepares the store; it is idempotent.
	Open(ctx context.Context) error
	// GetAll returns every stored document with its classification normalized.
	GetAll(ctx context.Context) ([]model.Document, error)
	// Get returns one document by id.
	Get(ctx context.Context, id string) (*model.Document, error)
	// Add inserts a new document; a duplicate id yields errs.ErrAlreadyExists.
	Add(ctx context.Context, doc *model.Document) error
	// Update merges patch into the stored document and returns the result.
	// Changing the classification or an authorization list yields errs.ErrImmutableField.
	Update(ctx context.Context, id string, patch model.DocumentPatch) (*model.Document, error)
}
