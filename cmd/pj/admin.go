package main

import (
	"context"
	"errors"
	"time"

	"github.com/vgents/portaljuridico/internal/client"
	"github.com/vgents/portaljuridico/internal/model"
)

type actionView struct {
	ID          int64  `json:"id"`
	Timestamp   string `json:"timestamp"`
	UserID      int64  `json:"userId"`
	NomeUsuario string `json:"nomeUsuario"`
	Tipo        string `json:"tipo"`
	Descricao   string `json:"descricao"`
	RecursoID   string `json:"recursoId,omitempty"`
	RecursoNome string `json:"recursoNome,omitempty"`
}

type groupView struct {
	ID      int64   `json:"id"`
	Nome    string  `json:"nome"`
	Membros []int64 `json:"membros"`
}

type termView struct {
	ID   int64  `json:"id"`
	Kind string `json:"kind"`
	Nome string `json:"nome"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (a *app) cmdHistory(ctx context.Context, args []string) error {
	fs := newFlags("history")
	var q client.HistoryQuery
	var tipo string
	fs.Int64Var(&q.UserID, "user", 0, "only this collaborator")
	fs.StringVar(&tipo, "tipo", "", "only this action type")
	fs.IntVar(&q.Limit, "limit", 50, "at most n entries")
	if err := parse(fs, args); err != nil {
		return err
	}
	q.Tipo = model.ActionType(tipo)

	cli, done, err := a.connect(true)
	if err != nil {
		return err
	}
	defer done()
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	acts, err := cli.ListHistory(ctx, q)
	if err != nil {
		return err
	}
	rows := make([]actionView, 0, len(acts))
	for _, x := range acts {
		rows = append(rows, actionView{
			ID:          x.ID,
			Timestamp:   x.Timestamp.UTC().Format(time.RFC3339),
			UserID:      x.UserID,
			NomeUsuario: x.NomeUsuario,
			Tipo:        string(x.Tipo),
			Descricao:   x.Descricao,
			RecursoID:   deref(x.RecursoID),
			RecursoNome: deref(x.RecursoNome),
		})
	}
	printJSON(a.out, rows)
	return nil
}

func groupRow(g model.Group) groupView {
	m := g.Membros
	if m == nil {
		m = []int64{}
	}
	return groupView{ID: g.ID, Nome: g.Nome, Membros: m}
}

func (a *app) cmdGroups(ctx context.Context, args []string) error {
	if err := parse(newFlags("groups"), args); err != nil {
		return err
	}
	cli, done, err := a.connect(true)
	if err != nil {
		return err
	}
	defer done()
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	gs, err := cli.ListGroups(ctx)
	if err != nil {
		return err
	}
	rows := make([]groupView, 0, len(gs))
	for _, g := range gs {
		rows = append(rows, groupRow(g))
	}
	printJSON(a.out, rows)
	return nil
}

func (a *app) cmdGroupAdd(ctx context.Context, args []string) error {
	fs := newFlags("group-add")
	nome := fs.String("nome", "", "group name")
	members := fs.Int64Slice("members", nil, "initial member ids")
	pw := fs.StringP("password", "p", "", "your password (stdin when omitted)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *nome == "" {
		return errors.New("need --nome")
	}
	password, err := a.password(*pw)
	if err != nil {
		return err
	}

	cli, done, err := a.connect(true)
	if err != nil {
		return err
	}
	defer done()
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	g, err := cli.CreateGroup(ctx, *nome, *members, password)
	if err != nil {
		return err
	}
	printJSON(a.out, groupRow(g))
	return nil
}

func (a *app) memberCmd(ctx context.Context, name string, args []string, add bool) error {
	fs := newFlags(name)
	groupID := fs.Int64("group", 0, "group id")
	userID := fs.Int64("user", 0, "collaborator id")
	pw := fs.StringP("password", "p", "", "your password (stdin when omitted)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *groupID == 0 || *userID == 0 {
		return errors.New("need --group and --user")
	}
	password, err := a.password(*pw)
	if err != nil {
		return err
	}

	cli, done, err := a.connect(true)
	if err != nil {
		return err
	}
	defer done()
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	call := cli.RemoveGroupMember
	if add {
		call = cli.AddGroupMember
	}
	g, err := call(ctx, *groupID, *userID, password)
	if err != nil {
		return err
	}
	printJSON(a.out, groupRow(g))
	return nil
}

func (a *app) cmdMemberAdd(ctx context.Context, args []string) error {
	return a.memberCmd(ctx, "member-add", args, true)
}

func (a *app) cmdMemberRm(ctx context.Context, args []string) error {
	return a.memberCmd(ctx, "member-rm", args, false)
}

func kindFlag(s string) (model.TermKind, error) {
	k := model.TermKind(s)
	if !k.Valid() {
		return "", errors.New("--kind: want assunto or categoria")
	}
	return k, nil
}

func (a *app) cmdTerms(ctx context.Context, args []string) error {
	fs := newFlags("terms")
	kind := fs.String("kind", string(model.TermCategoria), "assunto|categoria")
	if err := parse(fs, args); err != nil {
		return err
	}
	k, err := kindFlag(*kind)
	if err != nil {
		return err
	}

	cli, done, err := a.connect(true)
	if err != nil {
		return err
	}
	defer done()
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	ts, err := cli.ListTerms(ctx, k)
	if err != nil {
		return err
	}
	rows := make([]termView, 0, len(ts))
	for _, t := range ts {
		rows = append(rows, termView{ID: t.ID, Kind: string(t.Kind), Nome: t.Nome})
	}
	printJSON(a.out, rows)
	return nil
}

func (a *app) cmdTermAdd(ctx context.Context, args []string) error {
	fs := newFlags("term-add")
	kind := fs.String("kind", "", "assunto|categoria")
	nome := fs.String("nome", "", "name")
	if err := parse(fs, args); err != nil {
		return err
	}
	k, err := kindFlag(*kind)
	if err != nil {
		return err
	}
	if *nome == "" {
		return errors.New("need --nome")
	}

	cli, done, err := a.connect(true)
	if err != nil {
		return err
	}
	defer done()
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	t, err := cli.CreateTerm(ctx, k, *nome)
	if err != nil {
		return err
	}
	printJSON(a.out, termView{ID: t.ID, Kind: string(t.Kind), Nome: t.Nome})
	return nil
}
