// Package client is a typed Go client for the portal gRPC API.
package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vgents/portaljuridico/internal/convert"
	"github.com/vgents/portaljuridico/internal/events"
	"github.com/vgents/portaljuridico/internal/model"
	grpcserver "github.com/vgents/portaljuridico/internal/server/grpc"
	"github.com/vgents/portaljuridico/internal/service"
)

// ---- dial ----

// DialOptions select transport security and the bearer token.
type DialOptions struct {
	CACert     string // PEM bundle; system roots when empty
	SkipVerify bool   // accept any server certificate (dev)
	Plaintext  bool   // no TLS at all
	Token      string // sent as "authorization: Bearer ..." when set
}

type bearerCreds struct {
	token  string
	secure bool
}

func (b bearerCreds) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + b.token}, nil
}

func (b bearerCreds) RequireTransportSecurity() bool { return b.secure }

func transportCreds(o DialOptions) (credentials.TransportCredentials, error) {
	switch {
	case o.Plaintext:
		return insecure.NewCredentials(), nil
	case o.SkipVerify:
		return credentials.NewTLS(&tls.Config{InsecureSkipVerify: true}), nil //nolint:gosec // opt-in dev flag
	case o.CACert == "":
		return credentials.NewClientTLSFromCert(nil, ""), nil
	}
	pem, err := os.ReadFile(o.CACert)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("bad CA cert")
	}
	return credentials.NewTLS(&tls.Config{RootCAs: pool}), nil
}

// Dial creates a connection to addr. The connection is lazy; errors surface on the first call.
func Dial(addr string, o DialOptions, extra ...grpc.DialOption) (*grpc.ClientConn, error) {
	creds, err := transportCreds(o)
	if err != nil {
		return nil, err
	}
	opts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if o.Token != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(bearerCreds{token: o.Token, secure: !o.Plaintext}))
	}
	return grpc.NewClient(addr, append(opts, extra...)...)
}

// ---- client ----

// Client calls the portal service over cc.
type Client struct {
	cc grpc.ClientConnInterface
}

// New wraps an existing connection.
func New(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

type fields = map[string]*structpb.Value

func (c *Client) call(ctx context.Context, method string, in fields) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, grpcserver.FullMethod(method), &structpb.Struct{Fields: in}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func nested[T any](out *structpb.Struct, key string, conv func(*structpb.Struct) (T, error)) (T, error) {
	s := out.GetFields()[key].GetStructValue()
	if s == nil {
		var zero T
		return zero, fmt.Errorf("response: missing %q", key)
	}
	return conv(s)
}

func str(s string) *structpb.Value { return structpb.NewStringValue(s) }

func num(n int64) *structpb.Value { return structpb.NewNumberValue(float64(n)) }

// ---- auth ----

// Session is the result of a successful login.
type Session struct {
	AccessToken string
	ExpiresAt   time.Time
	User        model.User
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	out, err := c.call(ctx, "Login", fields{"email": str(email), "password": str(password)})
	if err != nil {
		return Session{}, err
	}
	tok, err := convert.String(out, "accessToken")
	if err != nil {
		return Session{}, err
	}
	exp, err := convert.Time(out, "expiresAt")
	if err != nil {
		return Session{}, err
	}
	u, err := nested(out, "user", convert.FromStructUser)
	if err != nil {
		return Session{}, err
	}
	return Session{AccessToken: tok, ExpiresAt: exp, User: u}, nil
}

// ConfirmPassword reports whether password is the caller's.
func (c *Client) ConfirmPassword(ctx context.Context, password string) (bool, error) {
	out, err := c.call(ctx, "ConfirmPassword", fields{"password": str(password)})
	if err != nil {
		return false, err
	}
	return convert.Bool(out, "ok")
}

// ---- documents ----

// Query narrows a document listing. Dates are DD-MM-YYYY or YYYY-MM-DD.
type Query struct {
	Text, Tipo, Categoria, Number string
	Status                        model.Status
	From, To                      string
	Offset, Limit                 int
}

// Page is one slice of a listing.
type Page struct {
	Documents []model.Document
	Total     int
}

// ListDocuments returns the visible documents matching q.
func (c *Client) ListDocuments(ctx context.Context, q Query) (Page, error) {
	in := fields{}
	for k, v := range map[string]string{
		"text": q.Text, "tipo": q.Tipo, "categoria": q.Categoria, "number": q.Number,
		"status": string(q.Status), "from": q.From, "to": q.To,
	} {
		if v != "" {
			in[k] = str(v)
		}
	}
	if q.Offset > 0 {
		in["offset"] = num(int64(q.Offset))
	}
	if q.Limit > 0 {
		in["limit"] = num(int64(q.Limit))
	}

	out, err := c.call(ctx, "ListDocuments", in)
	if err != nil {
		return Page{}, err
	}
	docs, err := convert.FromList(out, "documents", convert.FromStructDocument)
	if err != nil {
		return Page{}, err
	}
	total, err := convert.Int(out, "total")
	if err != nil {
		return Page{}, err
	}
	return Page{Documents: docs, Total: int(total)}, nil
}

func (c *Client) document(ctx context.Context, method string, in fields) (model.Document, error) {
	out, err := c.call(ctx, method, in)
	if err != nil {
		return model.Document{}, err
	}
	return nested(out, "document", convert.FromStructDocument)
}

// GetDocument fetches one document.
func (c *Client) GetDocument(ctx context.Context, id string) (model.Document, error) {
	return c.document(ctx, "GetDocument", fields{"id": str(id)})
}

// CreateDocument stores d. The server assigns an id when d.ID is empty.
func (c *Client) CreateDocument(ctx context.Context, d model.Document) (model.Document, error) {
	return c.document(ctx, "CreateDocument", fields{"document": structpb.NewStructValue(convert.ToStructDocument(d))})
}

// UpdateDocument applies the fields set in p.
func (c *Client) UpdateDocument(ctx context.Context, id string, p model.DocumentPatch) (model.Document, error) {
	return c.document(ctx, "UpdateDocument", fields{
		"id":    str(id),
		"patch": structpb.NewStructValue(convert.ToStructPatch(p)),
	})
}

// RevokeDocument revokes a document; password is the caller's.
func (c *Client) RevokeDocument(ctx context.Context, id, password string) (model.Document, error) {
	return c.document(ctx, "RevokeDocument", fields{"id": str(id), "password": str(password)})
}

// Watch is an open document event stream.
type Watch struct {
	stream grpc.ClientStream
}

// WatchDocuments opens the event stream. Cancel ctx to close it.
func (c *Client) WatchDocuments(ctx context.Context) (*Watch, error) {
	st, err := c.cc.NewStream(ctx, &grpcserver.ServiceDesc.Streams[0], grpcserver.FullMethod("WatchDocuments"))
	if err != nil {
		return nil, err
	}
	if err := st.SendMsg(&structpb.Struct{}); err != nil {
		return nil, err
	}
	if err := st.CloseSend(); err != nil {
		return nil, err
	}
	return &Watch{stream: st}, nil
}

// Recv blocks until the next event. It returns io.EOF when the server ends the stream.
func (w *Watch) Recv() (events.Event, error) {
	m := new(structpb.Struct)
	if err := w.stream.RecvMsg(m); err != nil {
		return events.Event{}, err
	}
	return convert.FromStructEvent(m)
}

// ---- history ----

// HistoryQuery selects audit entries: by user, else by type, else the latest.
type HistoryQuery struct {
	UserID int64
	Tipo   model.ActionType
	Limit  int
}

// ListHistory returns audit entries, newest first.
func (c *Client) ListHistory(ctx context.Context, q HistoryQuery) ([]model.Action, error) {
	in := fields{}
	if q.UserID != 0 {
		in["userId"] = num(q.UserID)
	}
	if q.Tipo != "" {
		in["tipo"] = str(string(q.Tipo))
	}
	if q.Limit > 0 {
		in["limit"] = num(int64(q.Limit))
	}
	out, err := c.call(ctx, "ListHistory", in)
	if err != nil {
		return nil, err
	}
	return convert.FromList(out, "actions", convert.FromStructAction)
}

// ---- groups ----

// ListGroups returns every group.
func (c *Client) ListGroups(ctx context.Context) ([]model.Group, error) {
	out, err := c.call(ctx, "ListGroups", nil)
	if err != nil {
		return nil, err
	}
	return convert.FromList(out, "groups", convert.FromStructGroup)
}

func (c *Client) group(ctx context.Context, method string, in fields) (model.Group, error) {
	out, err := c.call(ctx, method, in)
	if err != nil {
		return model.Group{}, err
	}
	return nested(out, "group", convert.FromStructGroup)
}

// CreateGroup adds a group with the given members.
func (c *Client) CreateGroup(ctx context.Context, nome string, membros []int64, password string) (model.Group, error) {
	return c.group(ctx, "CreateGroup", fields{
		"nome":     str(nome),
		"membros":  convert.IDList(membros),
		"password": str(password),
	})
}

// RenameGroup changes a group's name.
func (c *Client) RenameGroup(ctx context.Context, id int64, nome string) (model.Group, error) {
	return c.group(ctx, "RenameGroup", fields{"id": num(id), "nome": str(nome)})
}

// AddGroupMember adds userID to groupID.
func (c *Client) AddGroupMember(ctx context.Context, groupID, userID int64, password string) (model.Group, error) {
	return c.group(ctx, "AddGroupMember", fields{"groupId": num(groupID), "userId": num(userID), "password": str(password)})
}

// RemoveGroupMember removes userID from groupID.
func (c *Client) RemoveGroupMember(ctx context.Context, groupID, userID int64, password string) (model.Group, error) {
	return c.group(ctx, "RemoveGroupMember", fields{"groupId": num(groupID), "userId": num(userID), "password": str(password)})
}

// ---- users ----

// ListUsers returns every collaborator.
func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	out, err := c.call(ctx, "ListUsers", nil)
	if err != nil {
		return nil, err
	}
	return convert.FromList(out, "users", convert.FromStructUser)
}

// CreateUser registers a collaborator.
func (c *Client) CreateUser(ctx context.Context, nu service.NewUser) (model.User, error) {
	out, err := c.call(ctx, "CreateUser", fields{
		"nome": str(nu.Nome), "setor": str(nu.Setor), "funcao": str(nu.Funcao), "papel": str(nu.Papel),
		"email": str(nu.Email), "profile": str(string(nu.Profile)), "password": str(nu.Password),
	})
	if err != nil {
		return model.User{}, err
	}
	return nested(out, "user", convert.FromStructUser)
}

// ---- taxonomy ----

// ListTerms returns the subjects or the categories.
func (c *Client) ListTerms(ctx context.Context, kind model.TermKind) ([]model.Term, error) {
	out, err := c.call(ctx, "ListTerms", fields{"kind": str(string(kind))})
	if err != nil {
		return nil, err
	}
	return convert.FromList(out, "terms", convert.FromStructTerm)
}

// CreateTerm adds a subject or category.
func (c *Client) CreateTerm(ctx context.Context, kind model.TermKind, nome string) (model.Term, error) {
	out, err := c.call(ctx, "CreateTerm", fields{"kind": str(string(kind)), "nome": str(nome)})
	if err != nil {
		return model.Term{}, err
	}
	return nested(out, "term", convert.FromStructTerm)
}

// RenameTerm changes a term's name.
func (c *Client) RenameTerm(ctx context.Context, id int64, nome string) (model.Term, error) {
	out, err := c.call(ctx, "RenameTerm", fields{"id": num(id), "nome": str(nome)})
	if err != nil {
		return model.Term{}, err
	}
	return nested(out, "term", convert.FromStructTerm)
}
