package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vgents/portaljuridico/internal/errs"
	"github.com/vgents/portaljuridico/internal/model"
)

const userColumns = `id, nome, setor, funcao, papel, email, profile, pwd_hash, salt, created_at`

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (nome, setor, funcao, papel, email, profile, pwd_hash, salt)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_at`
	err := r.db.Pool.QueryRow(ctx, q,
		u.Nome, u.Setor, u.Funcao, u.Papel, u.Email, string(u.Profile), u.PwdHash, u.Salt,
	).Scan(&u.ID, &u.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %s: %w", u.Email, errs.ErrAlreadyExists)
	}
	return err
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u       model.User
		profile string
	)
	if err := row.Scan(&u.ID, &u.Nome, &u.Setor, &u.Funcao, &u.Papel, &u.Email, &profile, &u.PwdHash, &u.Salt, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Profile = model.Profile(profile)
	return &u, nil
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (*model.User, error) {
	u, err := scanUser(r.db.Pool.QueryRow(ctx, q, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	return u, err
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

// GetByEmail selects a user by email, ignoring case.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email)=lower($1)`, email)
}

// List returns every user ordered by name.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY nome, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}
