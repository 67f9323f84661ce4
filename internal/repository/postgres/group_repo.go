package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vgents/portaljuridico/internal/errs"
	"github.com/vgents/portaljuridico/internal/model"
)

const groupSelect = `
SELECT g.id, g.nome, g.created_at,
       COALESCE(array_agg(m.user_id ORDER BY m.user_id) FILTER (WHERE m.user_id IS NOT NULL), '{}')
FROM groups g
LEFT JOIN group_members m ON m.group_id = g.id`

// GroupRepo implements GroupRepository using PostgreSQL.
type GroupRepo struct{ db *DB }

// NewGroupRepo constructs a group repository.
func NewGroupRepo(db *DB) *GroupRepo { return &GroupRepo{db: db} }

func scanGroup(row rowScanner) (*model.Group, error) {
	var g model.Group
	if err := row.Scan(&g.ID, &g.Nome, &g.CreatedAt, &g.Membros); err != nil {
		return nil, err
	}
	return &g, nil
}

// List returns all groups with members.
func (r *GroupRepo) List(ctx context.Context) ([]model.Group, error) {
	rows, err := r.db.Pool.Query(ctx, groupSelect+` GROUP BY g.id ORDER BY g.nome, g.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Group, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

// Get returns one group with members.
func (r *GroupRepo) Get(ctx context.Context, id int64) (*model.Group, error) {
	g, err := scanGroup(r.db.Pool.QueryRow(ctx, groupSelect+` WHERE g.id=$1 GROUP BY g.id`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	return g, err
}

// Create inserts g and its initial members in one transaction.
func (r *GroupRepo) Create(ctx context.Context, g *model.Group) error {
	err := r.db.inTx(ctx, func(tx pgx.Tx) error {
		const ins = `INSERT INTO groups (nome) VALUES ($1) RETURNING id, created_at`
		if err := tx.QueryRow(ctx, ins, g.Nome).Scan(&g.ID, &g.CreatedAt); err != nil {
			return err
		}
		if len(g.Membros) == 0 {
			return nil
		}
		const mem = `
INSERT INTO group_members (group_id, user_id)
SELECT $1, unnest($2::bigint[])
ON CONFLICT DO NOTHING`
		_, err := tx.Exec(ctx, mem, g.ID, g.Membros)
		return err
	})
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("group %q: %w", g.Nome, errs.ErrAlreadyExists)
	case isForeignKeyViolation(err):
		return fmt.Errorf("group member: %w", errs.ErrNotFound)
	}
	return err
}

// Rename changes the name of group id.
func (r *GroupRepo) Rename(ctx context.Context, id int64, nome string) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE groups SET nome=$2 WHERE id=$1`, id, nome)
	if isUniqueViolation(err) {
		return fmt.Errorf("group %q: %w", nome, errs.ErrAlreadyExists)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// AddMember inserts the membership; an existing one is left as is.
func (r *GroupRepo) AddMember(ctx context.Context, groupID, userID int64) error {
	const q = `INSERT INTO group_members (group_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	_, err := r.db.Pool.Exec(ctx, q, groupID, userID)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("group %d or user %d: %w", groupID, userID, errs.ErrNotFound)
	}
	return err
}

// RemoveMember deletes the membership.
func (r *GroupRepo) RemoveMember(ctx context.Context, groupID, userID int64) error {
	const q = `DELETE FROM group_members WHERE group_id=$1 AND user_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, groupID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
