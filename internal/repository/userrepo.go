// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/vgents/portaljuridico/internal/model"
)

// UserRepository provides access to collaborators and their credentials.
type UserRepository interface {
	// Create inserts a new user and fills u.ID and u.CreatedAt.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id int64) (*model.User, error)
	// GetByEmail loads a user by email, compared case-insensitively.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// List returns all users ordered by name.
	List(ctx context.Context) ([]model.User, error)
}
