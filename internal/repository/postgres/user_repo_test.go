package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/vgents/portaljuridico/internal/errs"
	"github.com/vgents/portaljuridico/internal/model"
)

var userCols = []string{"id", "nome", "setor", "funcao", "papel", "email", "profile", "pwd_hash", "salt", "created_at"}

func TestUserRepo_Create_OK_and_UniqueViolation(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	now := time.Now()
	u := &model.User{
		Nome:    "Ana Silva",
		Setor:   "Jurídico",
		Funcao:  "Advogada",
		Papel:   "Gerente da Área",
		Email:   "ana@empresa.com.br",
		Profile: model.ProfileAdmin,
		PwdHash: []byte("h"),
		Salt:    []byte("s"),
	}

	mock.ExpectQuery(`INSERT INTO users \(nome, setor, funcao, papel, email, profile, pwd_hash, salt\) VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8\) RETURNING id, created_at`).
		WithArgs(u.Nome, u.Setor, u.Funcao, u.Papel, u.Email, "Administrador", u.PwdHash, u.Salt).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), now))
	require.NoError(t, r.Create(ctx, u))
	require.Equal(t, int64(1), u.ID)
	require.Equal(t, now, u.CreatedAt)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(u.Nome, u.Setor, u.Funcao, u.Papel, u.Email, "Administrador", u.PwdHash, u.Salt).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	err := r.Create(ctx, u)
	require.ErrorIs(t, err, errs.ErrAlreadyExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByID(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT id, nome, setor, funcao, papel, email, profile, pwd_hash, salt, created_at FROM users WHERE id=\$1`).
		WithArgs(int64(4)).
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(int64(4), "Juliana Rocha", "TI", "Analista", "", "juliana@empresa.com.br", "GEJUR", []byte("h"), []byte("s"), time.Now()))
	u, err := r.GetByID(ctx, 4)
	require.NoError(t, err)
	require.Equal(t, int64(4), u.ID)
	require.Equal(t, model.ProfileGejur, u.Profile)

	mock.ExpectQuery(`FROM users WHERE id=\$1`).
		WithArgs(int64(99)).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByID(ctx, 99)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUserRepo_GetByEmail_CaseInsensitive(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(`FROM users WHERE lower\(email\)=lower\(\$1\)`).
		WithArgs("ANA@Empresa.com.br").
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(int64(1), "Ana Silva", "", "", "", "ana@empresa.com.br", "Administrador", []byte("h"), []byte("s"), time.Now()))
	u, err := r.GetByEmail(ctx, "ANA@Empresa.com.br")
	require.NoError(t, err)
	require.True(t, u.IsAdmin())

	mock.ExpectQuery(`FROM users WHERE lower\(email\)=lower\(\$1\)`).
		WithArgs("ghost@empresa.com.br").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByEmail(ctx, "ghost@empresa.com.br")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUserRepo_List(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)

	mock.ExpectQuery(`FROM users ORDER BY nome, id`).
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(int64(1), "Ana Silva", "", "", "", "ana@empresa.com.br", "Administrador", []byte("h"), []byte("s"), time.Now()).
			AddRow(int64(2), "Carlos Mendes", "", "", "", "carlos@empresa.com.br", "UsuarioInterno", []byte("h"), []byte("s"), time.Now()))
	users, err := r.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, "Carlos Mendes", users[1].Nome)
	require.NoError(t, mock.ExpectationsWereMet())
}
