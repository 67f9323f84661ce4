package service

import (
	"context"
	"strings"

	"github.com/vgents/portaljuridico/internal/model"
	"github.com/vgents/portaljuridico/internal/repository"
)

// TaxonomyService manages the subject and category lists used to tag documents.
type TaxonomyService interface {
	List(ctx context.Context, viewer *model.User, kind model.TermKind) ([]model.Term, error)
	Create(ctx context.Context, actor *model.User, kind model.TermKind, nome string) (*model.Term, error)
	Rename(ctx context.Context, actor *model.User, id int64, nome string) (*model.Term, error)
}

// TaxonomyServiceImpl implements TaxonomyService.
type TaxonomyServiceImpl struct {
	terms   repository.TermRepository
	history Recorder
}

// NewTaxonomyService constructs TaxonomyService.
func NewTaxonomyService(terms repository.TermRepository, history Recorder) *TaxonomyServiceImpl {
	return &TaxonomyServiceImpl{terms: terms, history: history}
}

func (s *TaxonomyServiceImpl) List(ctx context.Context, viewer *model.User, kind model.TermKind) ([]model.Term, error) {
	if err := requireIdentity(viewer); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, validationf("unknown taxonomy %q", kind)
	}
	return s.terms.List(ctx, kind)
}

func (s *TaxonomyServiceImpl) Create(ctx context.Context, actor *model.User, kind model.TermKind, nome string) (*model.Term, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, validationf("unknown taxonomy %q", kind)
	}
	nome = strings.TrimSpace(nome)
	if nome == "" {
		return nil, validationf("name is required")
	}
	t := &model.Term{Kind: kind, Nome: nome}
	if err := s.terms.Create(ctx, t); err != nil {
		return nil, err
	}
	if kind == model.TermAssunto {
		s.history.Record(ctx, actor, model.ActionCriarAssunto, "Criou um novo assunto", "", t.Nome)
	} else {
		s.history.Record(ctx, actor, model.ActionCriarCategoria, "Criou uma nova categoria", "", t.Nome)
	}
	return t, nil
}

func (s *TaxonomyServiceImpl) Rename(ctx context.Context, actor *model.User, id int64, nome string) (*model.Term, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	nome = strings.TrimSpace(nome)
	if nome == "" {
		return nil, validationf("name is required")
	}
	t, err := s.terms.Rename(ctx, id, nome)
	if err != nil {
		return nil, err
	}
	if t.Kind == model.TermAssunto {
		s.history.Record(ctx, actor, model.ActionEditarAssunto, "Editou um assunto", "", t.Nome)
	} else {
		s.history.Record(ctx, actor, model.ActionEditarCategoria, "Editou uma categoria", "", t.Nome)
	}
	return t, nil
}
