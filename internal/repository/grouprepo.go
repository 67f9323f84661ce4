package repository

import (
	"context"

	"github.com/vgents/portaljuridico/internal/model"
)

// GroupRepository stores groups and their members.
type GroupRepository interface {
	// List returns all groups with their members.
	List(ctx context.Context) ([]model.Group, error)
	// Get returns one group with its members.
	Get(ctx context.Context, id int64) (*model.Group, error)
	// Create inserts a new group and fills g.ID and g.CreatedAt.
	Create(ctx context.Context, g *model.Group) error
	// Rename changes the group name.
	Rename(ctx context.Context, id int64, nome string) error
	// AddMember adds userID to the group; adding an existing member is a no-op.
	AddMember(ctx context.Context, groupID, userID int64) error
	// RemoveMember removes userID from the group.
	RemoveMember(ctx context.Context, groupID, userID int64) error
}
