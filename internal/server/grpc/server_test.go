package grpcserver

import (
	"context"
	"errors"
	"io"
	"net"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vgents/portaljuridico/internal/convert"
	"github.com/vgents/portaljuridico/internal/errs"
	"github.com/vgents/portaljuridico/internal/events"
	"github.com/vgents/portaljuridico/internal/model"
	"github.com/vgents/portaljuridico/internal/service"
)

/************ fakes ************/

var (
	admin  = &model.User{ID: 1, Nome: "Ana Silva", Email: "ana@p.gov", Profile: model.ProfileAdmin}
	member = &model.User{ID: 7, Nome: "Carlos Mendes", Email: "carlos@p.gov", Profile: model.ProfileInterno}
)

type fakeAuth struct{}

var _ service.AuthService = (*fakeAuth)(nil)

func (fakeAuth) Login(_ context.Context, email, password, _ string) (model.Tokens, model.User, error) {
	if email != member.Email || password != "pw" {
		return model.Tokens{}, model.User{}, errs.ErrUnauthorized
	}
	return model.Tokens{AccessToken: "dummy", ExpiresAt: time.Now().Add(time.Minute)}, *member, nil
}
func (fakeAuth) ConfirmPassword(_ context.Context, _ int64, password string) (bool, error) {
	return password == "pw", nil
}
func (fakeAuth) EnsureAdmin(context.Context, string, string) error { return nil }

type fakeUserSvc struct{ created []service.NewUser }

var _ service.UserService = (*fakeUserSvc)(nil)

func (f *fakeUserSvc) List(context.Context, *model.User) ([]model.User, error) {
	return []model.User{*admin, *member}, nil
}
func (f *fakeUserSvc) Get(_ context.Context, id int64) (*model.User, error) {
	switch id {
	case admin.ID:
		u := *admin
		return &u, nil
	case member.ID:
		u := *member
		return &u, nil
	}
	return nil, errs.ErrNotFound
}
func (f *fakeUserSvc) Create(_ context.Context, actor *model.User, nu service.NewUser) (*model.User, error) {
	if !actor.IsAdmin() {
		return nil, errs.ErrForbidden
	}
	f.created = append(f.created, nu)
	return &model.User{ID: 50, Nome: nu.Nome, Email: nu.Email, Profile: nu.Profile}, nil
}

// fakeDocSvc hides pessoal documents from everyone not listed.
type fakeDocSvc struct {
	mu         sync.Mutex
	docs       map[string]model.Document
	lastFilter service.Filter
	lastPatch  model.DocumentPatch
}

var _ service.DocumentService = (*fakeDocSvc)(nil)

func (f *fakeDocSvc) visible(d model.Document, u *model.User) bool {
	return d.ClassificacaoSigilo != model.ClassPessoal || slices.Contains(d.UsuariosAutorizados, u.ID)
}

func (f *fakeDocSvc) List(_ context.Context, u *model.User, flt service.Filter) (service.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = flt
	var out []model.Document
	for _, d := range f.docs {
		if f.visible(d, u) {
			out = append(out, d)
		}
	}
	service.SortByRecency(out)
	return service.Page{Documents: out, Total: len(out)}, nil
}

func (f *fakeDocSvc) Get(_ context.Context, u *model.User, id string) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	if !f.visible(d, u) {
		return nil, errs.ErrForbidden
	}
	return &d, nil
}

func (f *fakeDocSvc) Create(_ context.Context, u *model.User, d model.Document) (*model.Document, error) {
	if !u.IsAdmin() {
		return nil, errs.ErrForbidden
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	d.ID = "DOC-001-2026"
	f.docs[d.ID] = d
	return &d, nil
}

func (f *fakeDocSvc) Edit(_ context.Context, _ *model.User, id string, p model.DocumentPatch) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPatch = p
	d, ok := f.docs[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	p.Apply(&d)
	f.docs[id] = d
	return &d, nil
}

func (f *fakeDocSvc) Revoke(_ context.Context, _ *model.User, id, password string) (*model.Document, error) {
	if password != "pw" {
		return nil, errs.ErrUnauthorized
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	if d.Status == model.StatusRevogado {
		return nil, errs.ErrRevoked
	}
	d.Status, d.Revogado = model.StatusRevogado, true
	f.docs[id] = d
	return &d, nil
}

type fakeHistorySvc struct{ lastCall string }

var _ service.HistoryService = (*fakeHistorySvc)(nil)

func (f *fakeHistorySvc) Record(context.Context, *model.User, model.ActionType, string, string, string) {
}
func (f *fakeHistorySvc) Recent(_ context.Context, u *model.User, _ int) ([]model.Action, error) {
	f.lastCall = "recent"
	if !u.IsAdmin() {
		return nil, errs.ErrForbidden
	}
	return []model.Action{{ID: 1, UserID: 1, Tipo: model.ActionCriarGrupo}}, nil
}
func (f *fakeHistorySvc) ByUser(_ context.Context, _ *model.User, userID int64, limit int) ([]model.Action, error) {
	f.lastCall = "user"
	return []model.Action{{ID: 2, UserID: userID, Tipo: model.ActionEditarDocumento}}, nil
}
func (f *fakeHistorySvc) ByType(_ context.Context, _ *model.User, tipo model.ActionType, _ int) ([]model.Action, error) {
	f.lastCall = "type"
	return []model.Action{{ID: 3, UserID: 1, Tipo: tipo}}, nil
}

type fakeGroupSvc struct{ groups map[int64]*model.Group }

var _ service.GroupService = (*fakeGroupSvc)(nil)

func (f *fakeGroupSvc) MembershipsOf(context.Context, int64) ([]int64, error) { return nil, nil }
func (f *fakeGroupSvc) List(context.Context, *model.User) ([]model.Group, error) {
	out := []model.Group{}
	for _, g := range f.groups {
		out = append(out, *g)
	}
	return out, nil
}
func (f *fakeGroupSvc) Create(_ context.Context, _ *model.User, nome string, membros []int64, password string) (*model.Group, error) {
	if password != "pw" {
		return nil, errs.ErrUnauthorized
	}
	g := &model.Group{ID: int64(len(f.groups) + 1), Nome: nome, Membros: membros}
	f.groups[g.ID] = g
	return g, nil
}
func (f *fakeGroupSvc) Rename(_ context.Context, _ *model.User, id int64, nome string) (*model.Group, error) {
	g, ok := f.groups[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	g.Nome = nome
	return g, nil
}
func (f *fakeGroupSvc) AddMember(_ context.Context, _ *model.User, groupID, userID int64, password string) (*model.Group, error) {
	if password != "pw" {
		return nil, errs.ErrUnauthorized
	}
	g, ok := f.groups[groupID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	g.Membros = append(g.Membros, userID)
	return g, nil
}
func (f *fakeGroupSvc) RemoveMember(_ context.Context, _ *model.User, groupID, userID int64, _ string) (*model.Group, error) {
	g, ok := f.groups[groupID]
	if !ok || !g.HasMember(userID) {
		return nil, errs.ErrNotFound
	}
	g.Membros = slices.DeleteFunc(g.Membros, func(id int64) bool { return id == userID })
	return g, nil
}

type fakeTermSvc struct{}

var _ service.TaxonomyService = (*fakeTermSvc)(nil)

func (fakeTermSvc) List(_ context.Context, _ *model.User, kind model.TermKind) ([]model.Term, error) {
	if !kind.Valid() {
		return nil, errs.ErrValidation
	}
	return []model.Term{{ID: 1, Kind: kind, Nome: "Licitações"}}, nil
}
func (fakeTermSvc) Create(_ context.Context, _ *model.User, kind model.TermKind, nome string) (*model.Term, error) {
	return &model.Term{ID: 2, Kind: kind, Nome: nome}, nil
}
func (fakeTermSvc) Rename(_ context.Context, _ *model.User, id int64, nome string) (*model.Term, error) {
	return &model.Term{ID: id, Kind: model.TermAssunto, Nome: nome}, nil
}

/************ harness ************/

const bufSize = 1 << 20

var signKey = []byte("test-secret")

type harness struct {
	cc    *grpc.ClientConn
	docs  *fakeDocSvc
	hist  *fakeHistorySvc
	users *fakeUserSvc
	bus   *events.Bus
}

func startBufGRPC(t *testing.T) *harness {
	t.Helper()
	log := zaptest.NewLogger(t)
	h := &harness{
		docs: &fakeDocSvc{docs: map[string]model.Document{
			"PUB":  {ID: "PUB", Title: "Portaria", CreatedAt: time.Now()},
			"PRIV": {ID: "PRIV", Title: "Nota", ClassificacaoSigilo: model.ClassPessoal, UsuariosAutorizados: []int64{1}},
		}},
		hist:  &fakeHistorySvc{},
		users: &fakeUserSvc{},
		bus:   events.NewBus(log),
	}
	srv := New(Deps{
		Auth:    fakeAuth{},
		Users:   h.users,
		Docs:    h.docs,
		History: h.hist,
		Groups:  &fakeGroupSvc{groups: map[int64]*model.Group{}},
		Terms:   fakeTermSvc{},
		Bus:     h.bus,
		SignKey: signKey,
		Log:     log,
	})

	lis := bufconn.Listen(bufSize)
	gs := NewGRPCServer(srv)
	healthpb.RegisterHealthServer(gs, health.NewServer())
	go func() { _ = gs.Serve(lis) }()

	dialer := func(context.Context, string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(dialer), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	h.cc = cc
	t.Cleanup(func() { _ = cc.Close(); gs.Stop(); _ = lis.Close(); h.bus.Close() })
	return h
}

func jwtFor(t *testing.T, u *model.User) string {
	t.Helper()
	now := time.Now().UTC()
	return makeJWT(t, strconv.FormatInt(u.ID, 10), signKey, jwt.SigningMethodHS256, now.Add(-5*time.Second), time.Minute)
}

func as(t *testing.T, u *model.User) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+jwtFor(t, u))
}

func call(ctx context.Context, h *harness, method string, in map[string]any) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	err = h.cc.Invoke(ctx, FullMethod(method), req, out)
	return out, err
}

func wantCode(t *testing.T, err error, code codes.Code) {
	t.Helper()
	if status.Code(err) != code {
		t.Fatalf("want %s, got %v", code, err)
	}
}

/************ tests ************/

func TestServer_E2E_Login(t *testing.T) {
	t.Parallel()
	h := startBufGRPC(t)
	ctx := context.Background()

	out, err := call(ctx, h, "Login", map[string]any{"email": member.Email, "password": "pw"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if out.GetFields()["accessToken"].GetStringValue() != "dummy" {
		t.Fatalf("bad login reply: %v", out)
	}
	u, err := convert.FromStructUser(out.GetFields()["user"].GetStructValue())
	if err != nil || u.ID != member.ID {
		t.Fatalf("user: %+v %v", u, err)
	}

	_, err = call(ctx, h, "Login", map[string]any{"email": member.Email, "password": "nope"})
	wantCode(t, err, codes.Unauthenticated)
	_, err = call(ctx, h, "Login", map[string]any{"email": "", "password": "pw"})
	wantCode(t, err, codes.InvalidArgument)
	_, err = call(ctx, h, "Login", map[string]any{"email": 12.0, "password": "pw"})
	wantCode(t, err, codes.InvalidArgument)
}

func TestServer_E2E_AuthRequired(t *testing.T) {
	t.Parallel()
	h := startBufGRPC(t)

	_, err := call(context.Background(), h, "ListDocuments", nil)
	wantCode(t, err, codes.Unauthenticated)

	expired := makeJWT(t, "7", signKey, jwt.SigningMethodHS256, time.Now().Add(-2*time.Hour), time.Minute)
	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+expired)
	_, err = call(ctx, h, "ListDocuments", nil)
	wantCode(t, err, codes.Unauthenticated)

	ghost := &model.User{ID: 99}
	_, err = call(as(t, ghost), h, "ListDocuments", nil)
	wantCode(t, err, codes.Unauthenticated)

	// other services registered on the same server skip portal auth
	resp, err := healthpb.NewHealthClient(h.cc).Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err != nil || resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("health: %v %v", resp, err)
	}
}

func TestServer_E2E_Documents(t *testing.T) {
	t.Parallel()
	h := startBufGRPC(t)
	asMember, asAdmin := as(t, member), as(t, admin)

	out, err := call(asMember, h, "ListDocuments", map[string]any{"text": "port", "from": "01-01-2026", "to": "2026-12-31", "limit": 10.0})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	docs, err := convert.FromList(out, "documents", convert.FromStructDocument)
	if err != nil || len(docs) != 1 || docs[0].ID != "PUB" {
		t.Fatalf("list: %+v %v", docs, err)
	}
	if out.GetFields()["total"].GetNumberValue() != 1 {
		t.Fatalf("total: %v", out.GetFields()["total"])
	}
	f := h.docs.lastFilter
	if f.Text != "port" || f.Limit != 10 || f.From.Day() != 1 || f.To.Month() != time.December {
		t.Fatalf("filter not decoded: %+v", f)
	}

	_, err = call(asMember, h, "ListDocuments", map[string]any{"from": "ontem"})
	wantCode(t, err, codes.InvalidArgument)
	_, err = call(asMember, h, "ListDocuments", map[string]any{"limit": 2.5})
	wantCode(t, err, codes.InvalidArgument)

	_, err = call(asMember, h, "GetDocument", map[string]any{"id": "PRIV"})
	wantCode(t, err, codes.PermissionDenied)
	_, err = call(asMember, h, "GetDocument", map[string]any{"id": "NOPE"})
	wantCode(t, err, codes.NotFound)
	_, err = call(asMember, h, "GetDocument", map[string]any{})
	wantCode(t, err, codes.InvalidArgument)
	if _, err = call(asAdmin, h, "GetDocument", map[string]any{"id": "PRIV"}); err != nil {
		t.Fatalf("admin listed in usuariosAutorizados: %v", err)
	}

	newDoc := map[string]any{"document": map[string]any{"title": "Resolução", "categories": []any{"Normas"}}}
	_, err = call(asMember, h, "CreateDocument", newDoc)
	wantCode(t, err, codes.PermissionDenied)
	_, err = call(asAdmin, h, "CreateDocument", map[string]any{})
	wantCode(t, err, codes.InvalidArgument)
	out, err = call(asAdmin, h, "CreateDocument", newDoc)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	created, _ := convert.FromStructDocument(out.GetFields()["document"].GetStructValue())
	if created.ID != "DOC-001-2026" || created.Categories[0] != "Normas" {
		t.Fatalf("created: %+v", created)
	}

	out, err = call(asAdmin, h, "UpdateDocument", map[string]any{"id": "PUB", "patch": map[string]any{"title": "Portaria 2"}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if h.docs.lastPatch.Title == nil || h.docs.lastPatch.Summary != nil {
		t.Fatalf("patch presence lost: %+v", h.docs.lastPatch)
	}
	if out.GetFields()["document"].GetStructValue().GetFields()["title"].GetStringValue() != "Portaria 2" {
		t.Fatalf("update reply: %v", out)
	}

	_, err = call(asAdmin, h, "RevokeDocument", map[string]any{"id": "PUB", "password": "bad"})
	wantCode(t, err, codes.Unauthenticated)
	if _, err = call(asAdmin, h, "RevokeDocument", map[string]any{"id": "PUB", "password": "pw"}); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	_, err = call(asAdmin, h, "RevokeDocument", map[string]any{"id": "PUB", "password": "pw"})
	wantCode(t, err, codes.FailedPrecondition)

	out, err = call(asMember, h, "ConfirmPassword", map[string]any{"password": "pw"})
	if err != nil || !out.GetFields()["ok"].GetBoolValue() {
		t.Fatalf("confirm: %v %v", out, err)
	}
}

func TestServer_E2E_Watch(t *testing.T) {
	t.Parallel()
	h := startBufGRPC(t)

	ctx, cancel := context.WithCancel(as(t, member))
	defer cancel()
	stream, err := h.cc.NewStream(ctx, &ServiceDesc.Streams[0], FullMethod("WatchDocuments"))
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	if err := stream.SendMsg(&structpb.Struct{}); err != nil {
		t.Fatalf("SendMsg: %v", err)
	}
	if err := stream.CloseSend(); err != nil {
		t.Fatalf("CloseSend: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for h.bus.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("watch never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	h.bus.Publish(context.Background(), events.Event{Kind: events.KindUpdated, DocumentID: "PRIV", ActorID: 1})
	h.bus.Publish(context.Background(), events.Event{Kind: events.KindGroupsChanged, ActorID: 1})
	h.bus.Publish(context.Background(), events.Event{Kind: events.KindRevoked, DocumentID: "PUB", ActorID: 1})

	got := new(structpb.Struct)
	if err := stream.RecvMsg(got); err != nil {
		t.Fatalf("RecvMsg: %v", err)
	}
	e, err := convert.FromStructEvent(got)
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	if e.DocumentID != "PUB" || e.Kind != events.KindRevoked {
		t.Fatalf("hidden document leaked or wrong event: %+v", e)
	}

	cancel()
	if err := stream.RecvMsg(new(structpb.Struct)); status.Code(err) != codes.Canceled {
		t.Fatalf("want Canceled after client cancel, got %v", err)
	}
}

func TestServer_E2E_WatchEndsWhenBusCloses(t *testing.T) {
	t.Parallel()
	h := startBufGRPC(t)

	ctx, cancel := context.WithTimeout(as(t, member), 2*time.Second)
	defer cancel()
	stream, err := h.cc.NewStream(ctx, &ServiceDesc.Streams[0], FullMethod("WatchDocuments"))
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	if err := stream.SendMsg(&structpb.Struct{}); err != nil {
		t.Fatalf("SendMsg: %v", err)
	}
	if err := stream.CloseSend(); err != nil {
		t.Fatalf("CloseSend: %v", err)
	}
	for h.bus.Subscribers() == 0 {
		if ctx.Err() != nil {
			t.Fatalf("watch never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	h.bus.Close()
	if err := stream.RecvMsg(new(structpb.Struct)); !errors.Is(err, io.EOF) {
		t.Fatalf("want io.EOF once the bus closes, got %v", err)
	}
}

func TestServer_E2E_Management(t *testing.T) {
	t.Parallel()
	h := startBufGRPC(t)
	asMember, asAdmin := as(t, member), as(t, admin)

	if _, err := call(asAdmin, h, "ListHistory", map[string]any{"userId": 7.0}); err != nil || h.hist.lastCall != "user" {
		t.Fatalf("history by user: %v %s", err, h.hist.lastCall)
	}
	if _, err := call(asAdmin, h, "ListHistory", map[string]any{"tipo": "criar_grupo"}); err != nil || h.hist.lastCall != "type" {
		t.Fatalf("history by type: %v %s", err, h.hist.lastCall)
	}
	out, err := call(asAdmin, h, "ListHistory", nil)
	if err != nil || h.hist.lastCall != "recent" {
		t.Fatalf("recent: %v %s", err, h.hist.lastCall)
	}
	acts, err := convert.FromList(out, "actions", convert.FromStructAction)
	if err != nil || len(acts) != 1 {
		t.Fatalf("actions: %v %v", acts, err)
	}
	_, err = call(asMember, h, "ListHistory", nil)
	wantCode(t, err, codes.PermissionDenied)

	_, err = call(asAdmin, h, "CreateGroup", map[string]any{"nome": "Jurídico", "membros": []any{7.0}, "password": "bad"})
	wantCode(t, err, codes.Unauthenticated)
	out, err = call(asAdmin, h, "CreateGroup", map[string]any{"nome": "Jurídico", "membros": []any{7.0}, "password": "pw"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	g, _ := convert.FromStructGroup(out.GetFields()["group"].GetStructValue())
	if g.ID != 1 || !slices.Equal(g.Membros, []int64{7}) {
		t.Fatalf("group: %+v", g)
	}
	if _, err := call(asAdmin, h, "AddGroupMember", map[string]any{"groupId": 1.0, "userId": 1.0, "password": "pw"}); err != nil {
		t.Fatalf("add member: %v", err)
	}
	_, err = call(asAdmin, h, "AddGroupMember", map[string]any{"groupId": 1.0, "password": "pw"})
	wantCode(t, err, codes.InvalidArgument)
	if _, err := call(asAdmin, h, "RemoveGroupMember", map[string]any{"groupId": 1.0, "userId": 7.0, "password": "pw"}); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	_, err = call(asAdmin, h, "RemoveGroupMember", map[string]any{"groupId": 1.0, "userId": 7.0, "password": "pw"})
	wantCode(t, err, codes.NotFound)
	if _, err := call(asAdmin, h, "RenameGroup", map[string]any{"id": 1.0, "nome": "Executivo"}); err != nil {
		t.Fatalf("rename group: %v", err)
	}
	out, err = call(asMember, h, "ListGroups", nil)
	if err != nil {
		t.Fatalf("list groups: %v", err)
	}
	groups, _ := convert.FromList(out, "groups", convert.FromStructGroup)
	if len(groups) != 1 || groups[0].Nome != "Executivo" || !slices.Equal(groups[0].Membros, []int64{1}) {
		t.Fatalf("groups: %+v", groups)
	}

	out, err = call(asMember, h, "ListUsers", nil)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	users, _ := convert.FromList(out, "users", convert.FromStructUser)
	if len(users) != 2 {
		t.Fatalf("users: %+v", users)
	}
	_, err = call(asMember, h, "CreateUser", map[string]any{"nome": "X", "email": "x@p.gov", "password": "password1"})
	wantCode(t, err, codes.PermissionDenied)
	if _, err := call(asAdmin, h, "CreateUser", map[string]any{"nome": "X", "email": "x@p.gov", "profile": "GEJUR", "password": "password1"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if len(h.users.created) != 1 || h.users.created[0].Profile != model.ProfileGejur {
		t.Fatalf("created: %+v", h.users.created)
	}

	out, err = call(asMember, h, "ListTerms", map[string]any{"kind": "assunto"})
	if err != nil {
		t.Fatalf("list terms: %v", err)
	}
	terms, _ := convert.FromList(out, "terms", convert.FromStructTerm)
	if len(terms) != 1 || terms[0].Kind != model.TermAssunto {
		t.Fatalf("terms: %+v", terms)
	}
	_, err = call(asMember, h, "ListTerms", map[string]any{"kind": "tag"})
	wantCode(t, err, codes.InvalidArgument)
	if _, err := call(asAdmin, h, "CreateTerm", map[string]any{"kind": "categoria", "nome": "Contratos"}); err != nil {
		t.Fatalf("create term: %v", err)
	}
	_, err = call(asAdmin, h, "RenameTerm", map[string]any{"nome": "x"})
	wantCode(t, err, codes.InvalidArgument)
	if _, err := call(asAdmin, h, "RenameTerm", map[string]any{"id": 1.0, "nome": "Licitações Públicas"}); err != nil {
		t.Fatalf("rename term: %v", err)
	}
}
