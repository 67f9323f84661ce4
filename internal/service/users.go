package service

import (
	"context"
	"errors"
	"strings"

	pkgcrypto "github.com/vgents/portaljuridico/internal/crypto"
	"github.com/vgents/portaljuridico/internal/model"
	"github.com/vgents/portaljuridico/internal/repository"
)

// NewUser is the input of UserService.Create.
type NewUser struct {
	Nome     string
	Setor    string
	Funcao   string
	Papel    string
	Email    string
	Profile  model.Profile
	Password string
}

// UserService manages collaborators.
type UserService interface {
	List(ctx context.Context, viewer *model.User) ([]model.User, error)
	Get(ctx context.Context, id int64) (*model.User, error)
	Create(ctx context.Context, actor *model.User, nu NewUser) (*model.User, error)
}

// UserServiceImpl implements UserService.
type UserServiceImpl struct {
	users repository.UserRepository
}

// NewUserService constructs UserService.
func NewUserService(users repository.UserRepository) *UserServiceImpl {
	return &UserServiceImpl{users: users}
}

// List returns every collaborator.
func (s *UserServiceImpl) List(ctx context.Context, viewer *model.User) ([]model.User, error) {
	if err := requireIdentity(viewer); err != nil {
		return nil, err
	}
	return s.users.List(ctx)
}

// Get loads one collaborator; it backs token-to-identity resolution.
func (s *UserServiceImpl) Get(ctx context.Context, id int64) (*model.User, error) {
	if id == 0 {
		return nil, validationf("user id is required")
	}
	return s.users.GetByID(ctx, id)
}

// Create registers a collaborator; emails are unique ignoring case.
func (s *UserServiceImpl) Create(ctx context.Context, actor *model.User, nu NewUser) (*model.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return createUser(ctx, s.users, nu)
}

func createUser(ctx context.Context, users repository.UserRepository, nu NewUser) (*model.User, error) {
	nu.Nome = strings.TrimSpace(nu.Nome)
	nu.Email = strings.TrimSpace(nu.Email)
	if nu.Nome == "" {
		return nil, validationf("name is required")
	}
	if at := strings.IndexByte(nu.Email, '@'); at <= 0 || at == len(nu.Email)-1 {
		return nil, validationf("invalid email %q", nu.Email)
	}
	if nu.Profile == "" {
		nu.Profile = model.ProfileInterno
	}
	if !nu.Profile.Valid() {
		return nil, validationf("unknown profile %q", nu.Profile)
	}
	hash, salt, err := pkgcrypto.NewCredentials(nu.Password)
	if errors.Is(err, pkgcrypto.ErrWeakPassword) {
		return nil, validationf("password must have at least %d characters", pkgcrypto.MinPasswordLen)
	}
	if err != nil {
		return nil, err
	}
	u := &model.User{
		Nome:    nu.Nome,
		Setor:   nu.Setor,
		Funcao:  nu.Funcao,
		Papel:   nu.Papel,
		Email:   nu.Email,
		Profile: nu.Profile,
		PwdHash: hash,
		Salt:    salt,
	}
	if err := users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
