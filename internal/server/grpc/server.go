// Package grpcserver exposes the portal gRPC API handlers.
package grpcserver

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vgents/portaljuridico/internal/convert"
	"github.com/vgents/portaljuridico/internal/errs"
	"github.com/vgents/portaljuridico/internal/events"
	"github.com/vgents/portaljuridico/internal/model"
	"github.com/vgents/portaljuridico/internal/service"
)

// Subscriber hands out document event subscriptions.
type Subscriber interface {
	Subscribe(buffer int) (<-chan events.Event, func())
}

// Deps bundles the services served by Server.
type Deps struct {
	Auth    service.AuthService
	Users   service.UserService
	Docs    service.DocumentService
	History service.HistoryService
	Groups  service.GroupService
	Terms   service.TaxonomyService
	Bus     Subscriber
	SignKey []byte
	Log     *zap.Logger
}

// Server wires services into gRPC handlers.
type Server struct {
	auth    service.AuthService
	users   service.UserService
	docs    service.DocumentService
	history service.HistoryService
	groups  service.GroupService
	terms   service.TaxonomyService
	bus     Subscriber
	signKey []byte
	log     *zap.Logger
}

// New constructs a gRPC server with injected services.
func New(d Deps) *Server {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		auth:    d.Auth,
		users:   d.Users,
		docs:    d.Docs,
		history: d.History,
		groups:  d.Groups,
		terms:   d.Terms,
		bus:     d.Bus,
		signKey: d.SignKey,
		log:     log.Named("grpc"),
	}
}

// NewGRPCServer builds a grpc.Server with the portal interceptor chain
// (recover, metrics, logging, auth) and registers s on it.
func NewGRPCServer(s *Server, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts,
		grpc.ChainUnaryInterceptor(RecoverUnary(s.log), MetricsUnary(), LoggingUnary(s.log), s.AuthUnary()),
		grpc.ChainStreamInterceptor(RecoverStream(s.log), MetricsStream(), LoggingStream(s.log), s.AuthStream()),
	)
	gs := grpc.NewServer(opts...)
	Register(gs, s)
	return gs
}

// fail maps err to a status and logs the ones that are not the caller's fault.
func (s *Server) fail(op string, err error) error {
	st := toStatus(op, err)
	if status.Code(st) == codes.Internal {
		s.log.Error(op, zap.Error(err))
	}
	return st
}

func badRequest(err error) error {
	return status.Error(codes.InvalidArgument, err.Error())
}

func reply(fields map[string]*structpb.Value) *structpb.Struct {
	return &structpb.Struct{Fields: fields}
}

func remoteIP(ctx context.Context) string {
	addr := peerAddr(ctx)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// --- Auth ---

// Login authenticates a collaborator and returns an access token.
func (s *Server) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	email, err := convert.String(req, "email")
	if err != nil {
		return nil, badRequest(err)
	}
	password, err := convert.String(req, "password")
	if err != nil {
		return nil, badRequest(err)
	}
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, status.Error(codes.InvalidArgument, "empty email/password")
	}

	tok, u, err := s.auth.Login(ctx, email, password, remoteIP(ctx))
	if err != nil {
		if errors.Is(err, errs.ErrUnauthorized) {
			return nil, status.Error(codes.Unauthenticated, "bad credentials")
		}
		return nil, s.fail("login", err)
	}
	return reply(map[string]*structpb.Value{
		"accessToken": structpb.NewStringValue(tok.AccessToken),
		"expiresAt":   structpb.NewStringValue(tok.ExpiresAt.UTC().Format(time.RFC3339)),
		"user":        structpb.NewStructValue(convert.ToStructUser(u)),
	}), nil
}

// ConfirmPassword re-checks the caller's password before sensitive operations.
func (s *Server) ConfirmPassword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	password, err := convert.String(req, "password")
	if err != nil {
		return nil, badRequest(err)
	}
	ok, err := s.auth.ConfirmPassword(ctx, u.ID, password)
	if err != nil {
		return nil, s.fail("confirm password", err)
	}
	return reply(map[string]*structpb.Value{"ok": structpb.NewBoolValue(ok)}), nil
}

// --- Documents ---

// filterFromStruct reads a document listing filter. Dates accept DD-MM-YYYY or YYYY-MM-DD.
func filterFromStruct(req *structpb.Struct) (service.Filter, error) {
	var f service.Filter
	var err error
	read := func(key string, dst *string) {
		if err == nil {
			*dst, err = convert.String(req, key)
		}
	}
	read("text", &f.Text)
	read("tipo", &f.Tipo)
	read("categoria", &f.Categoria)
	read("number", &f.Number)
	var st, from, to string
	read("status", &st)
	read("from", &from)
	read("to", &to)
	if err != nil {
		return service.Filter{}, err
	}
	f.Status = model.Status(st)
	for _, d := range []struct {
		raw string
		dst *time.Time
	}{{from, &f.From}, {to, &f.To}} {
		if d.raw == "" {
			continue
		}
		t, ok := service.ParsePublicationDate(d.raw)
		if !ok {
			return service.Filter{}, errors.New("bad date " + d.raw)
		}
		*d.dst = t
	}
	offset, err := convert.Int(req, "offset")
	if err != nil {
		return service.Filter{}, err
	}
	limit, err := convert.Int(req, "limit")
	if err != nil {
		return service.Filter{}, err
	}
	f.Offset, f.Limit = int(offset), int(limit)
	return f, nil
}

func documentReply(d *model.Document) *structpb.Struct {
	return reply(map[string]*structpb.Value{"document": structpb.NewStructValue(convert.ToStructDocument(*d))})
}

// ListDocuments returns the documents the caller may see, filtered and paginated.
func (s *Server) ListDocuments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	f, err := filterFromStruct(req)
	if err != nil {
		return nil, badRequest(err)
	}
	page, err := s.docs.List(ctx, u, f)
	if err != nil {
		return nil, s.fail("list documents", err)
	}
	return reply(map[string]*structpb.Value{
		"documents": convert.ToList(page.Documents, convert.ToStructDocument),
		"total":     structpb.NewNumberValue(float64(page.Total)),
	}), nil
}

// GetDocument returns one document; PermissionDenied when sigilo hides it.
func (s *Server) GetDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := convert.String(req, "id")
	if err != nil || id == "" {
		return nil, status.Error(codes.InvalidArgument, "bad id")
	}
	d, err := s.docs.Get(ctx, u, id)
	if err != nil {
		return nil, s.fail("get document", err)
	}
	return documentReply(d), nil
}

// CreateDocument stores a new document.
func (s *Server) CreateDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	in := req.GetFields()["document"].GetStructValue()
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "missing document")
	}
	doc, err := convert.FromStructDocument(in)
	if err != nil {
		return nil, badRequest(err)
	}
	d, err := s.docs.Create(ctx, u, doc)
	if err != nil {
		return nil, s.fail("create document", err)
	}
	return documentReply(d), nil
}

// UpdateDocument applies a partial update.
func (s *Server) UpdateDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := convert.String(req, "id")
	if err != nil || id == "" {
		return nil, status.Error(codes.InvalidArgument, "bad id")
	}
	patch, err := convert.FromStructPatch(req.GetFields()["patch"].GetStructValue())
	if err != nil {
		return nil, badRequest(err)
	}
	d, err := s.docs.Edit(ctx, u, id, patch)
	if err != nil {
		return nil, s.fail("update document", err)
	}
	return documentReply(d), nil
}

// RevokeDocument revokes a document after password confirmation.
func (s *Server) RevokeDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	u, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := convert.String(req, "id")
	if err != nil || id == "" {
		return nil, status.Error(codes.InvalidArgument, "bad id")
	}
	password, err := convert.String(req, "password")
	if err != nil {
		return nil, badRequest(err)
	}
	d, err := s.docs.Revoke(ctx, u, id, password)
	if err != nil {
		return nil, s.fail("revoke document", err)
	}
	return documentReply(d), nil
}

const watchBuffer = 64

// WatchDocuments streams document events the caller is allowed to see
// until the client goes away.
func (s *Server) WatchDocuments(_ *structpb.Struct, stream grpc.ServerStream) error {
	ctx := stream.Context()
	u, err := caller(ctx)
	if err != nil {
		return err
	}
	ch, cancel := s.bus.Subscribe(watchBuffer)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			if !e.Kind.IsDocument() {
				continue
			}
			if _, err := s.docs.Get(ctx, u, e.DocumentID); err != nil {
				if !errors.Is(err, errs.ErrForbidden) && !errors.Is(err, errs.ErrNotFound) {
					s.log.Warn("watch visibility check failed", zap.String("document", e.DocumentID), zap.Error(err))
				}
				continue
			}
			if err := stream.SendMsg(convert.ToStructEvent(e)); err != nil {
				return err
			}
		}
	}
}
