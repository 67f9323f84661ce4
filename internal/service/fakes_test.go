package service

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vgents/portaljuridico/internal/errs"
	"github.com/vgents/portaljuridico/internal/events"
	"github.com/vgents/portaljuridico/internal/limiter"
	"github.com/vgents/portaljuridico/internal/model"
	"github.com/vgents/portaljuridico/internal/repository"
)

/************ users ************/

type fakeUsers struct {
	mu     sync.Mutex
	byID   map[int64]*model.User
	nextID int64

	createErr error
	getErr    error
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func newFakeUsers(users ...*model.User) *fakeUsers {
	f := &fakeUsers{byID: map[int64]*model.User{}}
	for _, u := range users {
		f.byID[u.ID] = u
		if u.ID > f.nextID {
			f.nextID = u.ID
		}
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, x := range f.byID {
		if strings.EqualFold(x.Email, u.Email) {
			return errs.ErrAlreadyExists
		}
	}
	f.nextID++
	u.ID = f.nextID
	u.CreatedAt = time.Now()
	cpy := *u
	f.byID[u.ID] = &cpy
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) List(context.Context) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.User, 0, len(f.byID))
	for _, u := range f.byID {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nome < out[j].Nome })
	return out, nil
}

/************ limiter ************/

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool
	failErr     error

	successErr error

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, 0, l.allowErr
}
func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return l.successErr
}
func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, l.failErr
}

/************ documents ************/

type fakeDocs struct {
	mu   sync.Mutex
	docs map[string]model.Document

	getAllErr error
	addErrs   []error // consumed one per Add call
	addCalls  int
}

var _ repository.DocumentRepository = (*fakeDocs)(nil)

func newFakeDocs(docs ...model.Document) *fakeDocs {
	f := &fakeDocs{docs: map[string]model.Document{}}
	for _, d := range docs {
		f.docs[d.ID] = d
	}
	return f
}

func (f *fakeDocs) Open(context.Context) error { return nil }

func (f *fakeDocs) GetAll(context.Context) ([]model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getAllErr != nil {
		return nil, f.getAllErr
	}
	out := make([]model.Document, 0, len(f.docs))
	for _, d := range f.docs {
		d.ClassificacaoSigilo = d.ClassificacaoSigilo.OrDefault()
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeDocs) Get(_ context.Context, id string) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &d, nil
}

func (f *fakeDocs) Add(_ context.Context, doc *model.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls++
	if len(f.addErrs) > 0 {
		err := f.addErrs[0]
		f.addErrs = f.addErrs[1:]
		if err != nil {
			return err
		}
	}
	if _, ok := f.docs[doc.ID]; ok {
		return errs.ErrAlreadyExists
	}
	doc.Normalize()
	f.docs[doc.ID] = *doc
	return nil
}

func (f *fakeDocs) Update(_ context.Context, id string, patch model.DocumentPatch) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	patch.Normalize()
	if patch.ChangesSigilo(&d) {
		return nil, errs.ErrImmutableField
	}
	patch.Apply(&d)
	f.docs[id] = d
	return &d, nil
}

/************ actions ************/

type fakeActions struct {
	mu        sync.Mutex
	items     []model.Action
	appendErr error
}

var _ repository.ActionRepository = (*fakeActions)(nil)

func (f *fakeActions) Open(context.Context) error { return nil }

func (f *fakeActions) Append(_ context.Context, a model.NewAction) (model.Action, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return model.Action{}, f.appendErr
	}
	out := model.Action{
		ID: int64(len(f.items) + 1), UserID: a.UserID, NomeUsuario: a.NomeUsuario,
		Tipo: a.Tipo, Descricao: a.Descricao, Timestamp: time.Now(),
	}
	if a.RecursoID != "" {
		out.RecursoID = &a.RecursoID
	}
	if a.RecursoNome != "" {
		out.RecursoNome = &a.RecursoNome
	}
	f.items = append(f.items, out)
	return out, nil
}

func (f *fakeActions) filter(keep func(model.Action) bool, limit int) []model.Action {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Action{}
	for i := len(f.items) - 1; i >= 0; i-- {
		if keep(f.items[i]) {
			out = append(out, f.items[i])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (f *fakeActions) Recent(_ context.Context, limit int) ([]model.Action, error) {
	return f.filter(func(model.Action) bool { return true }, limit), nil
}

func (f *fakeActions) ByUser(_ context.Context, userID int64, limit int) ([]model.Action, error) {
	return f.filter(func(a model.Action) bool { return a.UserID == userID }, limit), nil
}

func (f *fakeActions) ByType(_ context.Context, tipo model.ActionType, limit int) ([]model.Action, error) {
	return f.filter(func(a model.Action) bool { return a.Tipo == tipo }, limit), nil
}

func (f *fakeActions) types() []model.ActionType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.ActionType, 0, len(f.items))
	for _, a := range f.items {
		out = append(out, a.Tipo)
	}
	return out
}

/************ groups ************/

type fakeGroups struct {
	mu        sync.Mutex
	groups    map[int64]*model.Group
	nextID    int64
	listCalls int
	listErr   error
}

var _ repository.GroupRepository = (*fakeGroups)(nil)

func newFakeGroups(groups ...model.Group) *fakeGroups {
	f := &fakeGroups{groups: map[int64]*model.Group{}}
	for i := range groups {
		g := groups[i]
		f.groups[g.ID] = &g
		if g.ID > f.nextID {
			f.nextID = g.ID
		}
	}
	return f
}

func (f *fakeGroups) List(context.Context) ([]model.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.Group, 0, len(f.groups))
	for _, g := range f.groups {
		c := *g
		c.Membros = slices.Clone(g.Membros)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeGroups) Get(_ context.Context, id int64) (*model.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *g
	c.Membros = slices.Clone(g.Membros)
	return &c, nil
}

func (f *fakeGroups) Create(_ context.Context, g *model.Group) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.groups {
		if strings.EqualFold(x.Nome, g.Nome) {
			return errs.ErrAlreadyExists
		}
	}
	f.nextID++
	g.ID = f.nextID
	c := *g
	f.groups[g.ID] = &c
	return nil
}

func (f *fakeGroups) Rename(_ context.Context, id int64, nome string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[id]
	if !ok {
		return errs.ErrNotFound
	}
	g.Nome = nome
	return nil
}

func (f *fakeGroups) AddMember(_ context.Context, groupID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[groupID]
	if !ok {
		return errs.ErrNotFound
	}
	if !slices.Contains(g.Membros, userID) {
		g.Membros = append(g.Membros, userID)
	}
	return nil
}

func (f *fakeGroups) RemoveMember(_ context.Context, groupID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[groupID]
	if !ok {
		return errs.ErrNotFound
	}
	i := slices.Index(g.Membros, userID)
	if i < 0 {
		return errs.ErrNotFound
	}
	g.Membros = slices.Delete(g.Membros, i, i+1)
	return nil
}

/************ terms ************/

type fakeTerms struct {
	mu     sync.Mutex
	terms  []model.Term
	nextID int64
}

var _ repository.TermRepository = (*fakeTerms)(nil)

func (f *fakeTerms) List(_ context.Context, kind model.TermKind) ([]model.Term, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Term{}
	for _, t := range f.terms {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTerms) Create(_ context.Context, t *model.Term) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.terms {
		if x.Kind == t.Kind && strings.EqualFold(x.Nome, t.Nome) {
			return errs.ErrAlreadyExists
		}
	}
	f.nextID++
	t.ID = f.nextID
	f.terms = append(f.terms, *t)
	return nil
}

func (f *fakeTerms) Rename(_ context.Context, id int64, nome string) (*model.Term, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.terms {
		if f.terms[i].ID == id {
			f.terms[i].Nome = nome
			t := f.terms[i]
			return &t, nil
		}
	}
	return nil, errs.ErrNotFound
}

/************ collaborators of the services ************/

type fakeChecker struct {
	password string
	err      error
	calls    int
}

var _ PasswordChecker = (*fakeChecker)(nil)

func (c *fakeChecker) ConfirmPassword(_ context.Context, _ int64, password string) (bool, error) {
	c.calls++
	if c.err != nil {
		return false, c.err
	}
	return password == c.password, nil
}

type fakeBus struct {
	mu     sync.Mutex
	events []events.Event
}

var _ EventPublisher = (*fakeBus)(nil)

func (b *fakeBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *fakeBus) kinds() []events.Kind {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]events.Kind, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Kind)
	}
	return out
}
