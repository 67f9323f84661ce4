package grpcserver

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vgents/portaljuridico/internal/convert"
	"github.com/vgents/portaljuridico/internal/model"
	"github.com/vgents/portaljuridico/internal/service"
)

// --- History ---

// ListHistory returns audit entries: of one user when userId is set,
// of one type when tipo is set, otherwise the latest of everyone.
func (s *Server) ListHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	userID, err := convert.Int(req, "userId")
	if err != nil {
		return nil, badRequest(err)
	}
	tipo, err := convert.String(req, "tipo")
	if err != nil {
		return nil, badRequest(err)
	}
	limit, err := convert.Int(req, "limit")
	if err != nil {
		return nil, badRequest(err)
	}

	var out []model.Action
	switch {
	case userID != 0:
		out, err = s.history.ByUser(ctx, u, userID, int(limit))
	case tipo != "":
		out, err = s.history.ByType(ctx, u, model.ActionType(tipo), int(limit))
	default:
		out, err = s.history.Recent(ctx, u, int(limit))
	}
	if err != nil {
		return nil, s.fail("list history", err)
	}
	return reply(map[string]*structpb.Value{"actions": convert.ToList(out, convert.ToStructAction)}), nil
}

// --- Groups ---

func groupReply(g *model.Group) *structpb.Struct {
	return reply(map[string]*structpb.Value{"group": structpb.NewStructValue(convert.ToStructGroup(*g))})
}

// ListGroups returns every group with its members.
func (s *Server) ListGroups(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	gs, err := s.groups.List(ctx, u)
	if err != nil {
		return nil, s.fail("list groups", err)
	}
	return reply(map[string]*structpb.Value{"groups": convert.ToList(gs, convert.ToStructGroup)}), nil
}

// CreateGroup adds a group after password confirmation.
func (s *Server) CreateGroup(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	nome, err := convert.String(req, "nome")
	if err != nil {
		return nil, badRequest(err)
	}
	membros, err := convert.IDs(req, "membros")
	if err != nil {
		return nil, badRequest(err)
	}
	password, err := convert.String(req, "password")
	if err != nil {
		return nil, badRequest(err)
	}
	g, err := s.groups.Create(ctx, u, nome, membros, password)
	if err != nil {
		return nil, s.fail("create group", err)
	}
	return groupReply(g), nil
}

// RenameGroup changes a group's name.
func (s *Server) RenameGroup(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := convert.Int(req, "id")
	if err != nil || id == 0 {
		return nil, status.Error(codes.InvalidArgument, "bad id")
	}
	nome, err := convert.String(req, "nome")
	if err != nil {
		return nil, badRequest(err)
	}
	g, err := s.groups.Rename(ctx, u, id, nome)
	if err != nil {
		return nil, s.fail("rename group", err)
	}
	return groupReply(g), nil
}

func memberArgs(req *structpb.Struct) (groupID, userID int64, password string, err error) {
	if groupID, err = convert.Int(req, "groupId"); err != nil {
		return
	}
	if userID, err = convert.Int(req, "userId"); err != nil {
		return
	}
	if groupID == 0 || userID == 0 {
		return 0, 0, "", errors.New("groupId and userId are required")
	}
	password, err = convert.String(req, "password")
	return
}

// AddGroupMember adds a collaborator to a group after password confirmation.
func (s *Server) AddGroupMember(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	groupID, userID, password, err := memberArgs(req)
	if err != nil {
		return nil, badRequest(err)
	}
	g, err := s.groups.AddMember(ctx, u, groupID, userID, password)
	if err != nil {
		return nil, s.fail("add group member", err)
	}
	return groupReply(g), nil
}

// RemoveGroupMember removes a collaborator from a group after password confirmation.
func (s *Server) RemoveGroupMember(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	groupID, userID, password, err := memberArgs(req)
	if err != nil {
		return nil, badRequest(err)
	}
	g, err := s.groups.RemoveMember(ctx, u, groupID, userID, password)
	if err != nil {
		return nil, s.fail("remove group member", err)
	}
	return groupReply(g), nil
}

// --- Users ---

// ListUsers returns every collaborator.
func (s *Server) ListUsers(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	us, err := s.users.List(ctx, u)
	if err != nil {
		return nil, s.fail("list users", err)
	}
	return reply(map[string]*structpb.Value{"users": convert.ToList(us, convert.ToStructUser)}), nil
}

// CreateUser registers a collaborator.
func (s *Server) CreateUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	var nu service.NewUser
	var profile string
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"nome", &nu.Nome}, {"setor", &nu.Setor}, {"funcao", &nu.Funcao}, {"papel", &nu.Papel},
		{"email", &nu.Email}, {"profile", &profile}, {"password", &nu.Password},
	} {
		if *f.dst, err = convert.String(req, f.key); err != nil {
			return nil, badRequest(err)
		}
	}
	nu.Profile = model.Profile(profile)

	created, err := s.users.Create(ctx, u, nu)
	if err != nil {
		return nil, s.fail("create user", err)
	}
	return reply(map[string]*structpb.Value{"user": structpb.NewStructValue(convert.ToStructUser(*created))}), nil
}

// --- Taxonomy ---

func termReply(t *model.Term) *structpb.Struct {
	return reply(map[string]*structpb.Value{"term": structpb.NewStructValue(convert.ToStructTerm(*t))})
}

// ListTerms returns the subjects or categories.
func (s *Server) ListTerms(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	kind, err := convert.String(req, "kind")
	if err != nil {
		return nil, badRequest(err)
	}
	ts, err := s.terms.List(ctx, u, model.TermKind(kind))
	if err != nil {
		return nil, s.fail("list terms", err)
	}
	return reply(map[string]*structpb.Value{"terms": convert.ToList(ts, convert.ToStructTerm)}), nil
}

// CreateTerm adds a subject or category.
func (s *Server) CreateTerm(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	kind, err := convert.String(req, "kind")
	if err != nil {
		return nil, badRequest(err)
	}
	nome, err := convert.String(req, "nome")
	if err != nil {
		return nil, badRequest(err)
	}
	t, err := s.terms.Create(ctx, u, model.TermKind(kind), nome)
	if err != nil {
		return nil, s.fail("create term", err)
	}
	return termReply(t), nil
}

// RenameTerm changes the name of a subject or category.
func (s *Server) RenameTerm(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := convert.Int(req, "id")
	if err != nil || id == 0 {
		return nil, status.Error(codes.InvalidArgument, "bad id")
	}
	nome, err := convert.String(req, "nome")
	if err != nil {
		return nil, badRequest(err)
	}
	t, err := s.terms.Rename(ctx, u, id, nome)
	if err != nil {
		return nil, s.fail("rename term", err)
	}
	return termReply(t), nil
}
