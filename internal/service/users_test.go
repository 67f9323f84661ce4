package service

import (
	"context"
	"errors"
	"testing"

	"github.com/vgents/portaljuridico/internal/errs"
	"github.com/vgents/portaljuridico/internal/model"
)

var (
	adminUser  = &model.User{ID: 1, Nome: "Ana Silva", Profile: model.ProfileAdmin}
	memberUser = &model.User{ID: 2, Nome: "Carlos Mendes", Profile: model.ProfileInterno}
	otherUser  = &model.User{ID: 3, Nome: "Patrícia Costa", Profile: model.ProfileGejur}
)

func TestUsers_Create(t *testing.T) {
	t.Parallel()

	users := newFakeUsers()
	s := NewUserService(users)
	ctx := context.Background()

	if _, err := s.Create(ctx, memberUser, NewUser{Nome: "X", Email: "x@p.gov", Password: "password1"}); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("want ErrForbidden for non-admin, got %v", err)
	}
	if _, err := s.Create(ctx, &model.User{}, NewUser{}); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized without identity, got %v", err)
	}

	cases := []NewUser{
		{Nome: " ", Email: "a@p.gov", Password: "password1"},
		{Nome: "A", Email: "no-at", Password: "password1"},
		{Nome: "A", Email: "@p.gov", Password: "password1"},
		{Nome: "A", Email: "a@p.gov", Password: "short"},
		{Nome: "A", Email: "a@p.gov", Password: "password1", Profile: "Root"},
	}
	for _, nu := range cases {
		if _, err := s.Create(ctx, adminUser, nu); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("%+v: want ErrValidation, got %v", nu, err)
		}
	}

	u, err := s.Create(ctx, adminUser, NewUser{Nome: " Ricardo Souza ", Email: "ricardo@p.gov", Setor: "GEJUR", Password: "password1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID == 0 || u.Nome != "Ricardo Souza" || u.Profile != model.ProfileInterno {
		t.Fatalf("bad user: %+v", u)
	}
	if len(u.Salt) == 0 || len(u.PwdHash) == 0 {
		t.Fatalf("credentials not set")
	}

	if _, err := s.Create(ctx, adminUser, NewUser{Nome: "Dup", Email: "RICARDO@p.gov", Password: "password1"}); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists on duplicate email, got %v", err)
	}
}

func TestUsers_ListAndGet(t *testing.T) {
	t.Parallel()

	users := newFakeUsers(&model.User{ID: 4, Nome: "Bruno"}, &model.User{ID: 5, Nome: "Alice"})
	s := NewUserService(users)
	ctx := context.Background()

	if _, err := s.List(ctx, nil); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	list, err := s.List(ctx, memberUser)
	if err != nil || len(list) != 2 || list[0].Nome != "Alice" {
		t.Fatalf("List=%v err=%v", list, err)
	}

	if _, err := s.Get(ctx, 0); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want ErrValidation for id 0, got %v", err)
	}
	if _, err := s.Get(ctx, 99); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if u, err := s.Get(ctx, 4); err != nil || u.Nome != "Bruno" {
		t.Fatalf("Get=%v err=%v", u, err)
	}
}
