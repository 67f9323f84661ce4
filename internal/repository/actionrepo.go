package repository

import (
	"context"

	"github.com/vgents/portaljuridico/internal/model"
)

// ActionRepository is the append-only audit log.
// Queries return newest first and clamp limit to (0, 500]; limit <= 0 means 50.
type ActionRepository interface {
	// Open prepares the store and seeds demonstration records when it is empty.
	Open(ctx context.Context) error
	// Append stores a new record, assigning its id and timestamp.
	Append(ctx context.Context, a model.NewAction) (model.Action, error)
	// Recent returns the latest records.
	Recent(ctx context.Context, limit int) ([]model.Action, error)
	// ByUser returns the latest records of one user.
	ByUser(ctx context.Context, userID int64, limit int) ([]model.Action, error)
	// ByType returns the latest records of one action type.
	ByType(ctx context.Context, tipo model.ActionType, limit int) ([]model.Action, error)
}
