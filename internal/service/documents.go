package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vgents/portaljuridico/internal/errs"
	"github.com/vgents/portaljuridico/internal/events"
	"github.com/vgents/portaljuridico/internal/model"
	"github.com/vgents/portaljuridico/internal/repository"
	"github.com/vgents/portaljuridico/internal/sigilo"
)

// DocumentService lists and manages legal documents under the sigilo rules.
type DocumentService interface {
	// List returns the documents viewer may see, filtered, sorted newest first and paginated.
	List(ctx context.Context, viewer *model.User, f Filter) (Page, error)
	// Get returns one document; ErrForbidden when viewer may not see it.
	Get(ctx context.Context, viewer *model.User, id string) (*model.Document, error)
	// Create stores a new document on behalf of an administrator.
	Create(ctx context.Context, actor *model.User, doc model.Document) (*model.Document, error)
	// Edit applies a partial update on behalf of an administrator.
	Edit(ctx context.Context, actor *model.User, id string, patch model.DocumentPatch) (*model.Document, error)
	// Revoke marks a document Revogado after confirming the actor's password.
	Revoke(ctx context.Context, actor *model.User, id, password string) (*model.Document, error)
}

// MembershipResolver returns the ids of the groups a user belongs to.
type MembershipResolver interface {
	MembershipsOf(ctx context.Context, userID int64) ([]int64, error)
}

// Recorder appends audit entries without failing the caller.
type Recorder interface {
	Record(ctx context.Context, actor *model.User, tipo model.ActionType, descricao, recursoID, recursoNome string)
}

// EventPublisher announces document mutations.
type EventPublisher interface {
	Publish(ctx context.Context, e events.Event)
}

// DocumentServiceImpl implements DocumentService.
type DocumentServiceImpl struct {
	docs    repository.DocumentRepository
	groups  MembershipResolver
	history Recorder
	auth    PasswordChecker
	bus     EventPublisher
	policy  sigilo.Policy
	log     *zap.Logger
	now     func() time.Time
}

// DocumentDeps bundles the collaborators of DocumentServiceImpl.
type DocumentDeps struct {
	Docs    repository.DocumentRepository
	Groups  MembershipResolver
	History Recorder
	Auth    PasswordChecker
	Bus     EventPublisher
	Policy  sigilo.Policy
	Log     *zap.Logger
}

// NewDocumentService constructs DocumentService.
func NewDocumentService(d DocumentDeps) *DocumentServiceImpl {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &DocumentServiceImpl{
		docs:    d.Docs,
		groups:  d.Groups,
		history: d.History,
		auth:    d.Auth,
		bus:     d.Bus,
		policy:  d.Policy,
		log:     log.Named("documents"),
		now:     time.Now,
	}
}

func (s *DocumentServiceImpl) canView(doc *model.Document, userID int64, memberOf []int64) bool {
	ok := s.policy.Decide(doc, userID, memberOf)
	recordDecision(doc.ClassificacaoSigilo, ok)
	return ok
}

// List applies the sigilo filter first, then hides revoked documents from
// non-administrators, then applies f.
func (s *DocumentServiceImpl) List(ctx context.Context, viewer *model.User, f Filter) (Page, error) {
	if err := requireIdentity(viewer); err != nil {
		return Page{}, err
	}
	all, err := s.docs.GetAll(ctx)
	if err != nil {
		return Page{}, err
	}
	memberOf, err := s.groups.MembershipsOf(ctx, viewer.ID)
	if err != nil {
		return Page{}, err
	}

	out := make([]model.Document, 0, len(all))
	for i := range all {
		d := &all[i]
		d.ClassificacaoSigilo = d.ClassificacaoSigilo.OrDefault()
		if !s.canView(d, viewer.ID, memberOf) {
			continue
		}
		if !viewer.IsAdmin() && statusOf(d) == model.StatusRevogado {
			continue
		}
		if !f.matches(d) {
			continue
		}
		out = append(out, *d)
	}
	SortByRecency(out)
	return Page{Documents: paginate(out, f.Offset, f.Limit), Total: len(out)}, nil
}

// Get returns one document if viewer passes the sigilo check.
func (s *DocumentServiceImpl) Get(ctx context.Context, viewer *model.User, id string) (*model.Document, error) {
	if err := requireIdentity(viewer); err != nil {
		return nil, err
	}
	d, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	memberOf, err := s.groups.MembershipsOf(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}
	if !s.canView(d, viewer.ID, memberOf) {
		return nil, fmt.Errorf("document %s: %w", id, errs.ErrForbidden)
	}
	return d, nil
}

// Create validates doc, fills defaults, assigns an id when missing and stores it.
func (s *DocumentServiceImpl) Create(ctx context.Context, actor *model.User, doc model.Document) (*model.Document, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.prepare(&doc); err != nil {
		return nil, err
	}

	if doc.ID != "" {
		if err := s.docs.Add(ctx, &doc); err != nil {
			return nil, err
		}
	} else if err := s.addWithGeneratedID(ctx, &doc); err != nil {
		return nil, err
	}

	s.history.Record(ctx, actor, model.ActionCriarDocumento, "Criou um novo documento", doc.ID, doc.Title)
	s.bus.Publish(context.WithoutCancel(ctx), events.Event{Kind: events.KindCreated, DocumentID: doc.ID, ActorID: actor.ID})
	return &doc, nil
}

// prepare validates and fills the defaults of a new document.
func (s *DocumentServiceImpl) prepare(doc *model.Document) error {
	doc.Title = strings.TrimSpace(doc.Title)
	if doc.Title == "" {
		return validationf("title is required")
	}
	doc.ID = strings.TrimSpace(doc.ID)

	doc.ClassificacaoSigilo = doc.ClassificacaoSigilo.OrDefault()
	switch doc.ClassificacaoSigilo {
	case model.ClassInterno:
		doc.GruposAutorizados, doc.UsuariosAutorizados = nil, nil
	case model.ClassGrupo:
		if len(doc.GruposAutorizados) == 0 {
			return validationf("grupo classification needs at least one authorized group")
		}
		doc.UsuariosAutorizados = nil
	case model.ClassPessoal:
		if len(doc.UsuariosAutorizados) == 0 {
			return validationf("pessoal classification needs at least one authorized user")
		}
		doc.GruposAutorizados = nil
	default:
		return validationf("unknown classification %q", doc.ClassificacaoSigilo)
	}

	switch doc.Status {
	case "", model.StatusVigente, model.StatusRevogado:
	default:
		return validationf("unknown status %q", doc.Status)
	}

	now := s.now()
	if doc.Date == "" {
		doc.Date = now.Format(dateBR)
	} else {
		pub, ok := ParsePublicationDate(doc.Date)
		if !ok {
			return validationf("publication date %q is not DD-MM-YYYY or YYYY-MM-DD", doc.Date)
		}
		doc.Date = pub.Format(dateBR)
	}
	if doc.Vigencia == "" {
		doc.Vigencia = doc.Date
	}
	if doc.Summary == "" {
		doc.Summary = doc.Title
	}
	if doc.SummarySimplified == "" {
		doc.SummarySimplified = doc.Summary
	}
	if doc.Content == "" {
		doc.Content = doc.Summary
	}
	if doc.HighlightText == "" {
		doc.HighlightText = doc.Title
	}
	if len(doc.Categories) == 0 {
		for _, c := range []string{doc.Tipo, doc.Categoria, doc.Assunto} {
			if c != "" {
				doc.Categories = append(doc.Categories, c)
			}
		}
	}
	doc.CreatedAt = now.UTC()
	doc.Normalize()
	return nil
}

const maxIDAttempts = 5

// addWithGeneratedID numbers the document DOC-NNN-YYYY after the current
// collection size, skipping numbers already taken.
func (s *DocumentServiceImpl) addWithGeneratedID(ctx context.Context, doc *model.Document) error {
	all, err := s.docs.GetAll(ctx)
	if err != nil {
		return err
	}
	taken := make(map[string]struct{}, len(all))
	for _, d := range all {
		taken[d.ID] = struct{}{}
	}
	year := s.now().Year()
	n := len(all) + 1
	for attempt := 0; attempt < maxIDAttempts; {
		id := fmt.Sprintf("DOC-%03d-%d", n, year)
		n++
		if _, ok := taken[id]; ok {
			continue
		}
		doc.ID = id
		err := s.docs.Add(ctx, doc)
		if !errors.Is(err, errs.ErrAlreadyExists) {
			return err
		}
		attempt++
	}
	return fmt.Errorf("generate document id: %w", errs.ErrAlreadyExists)
}

// Edit applies patch after checking the lifecycle and attachment rules.
func (s *DocumentServiceImpl) Edit(ctx context.Context, actor *model.User, id string, patch model.DocumentPatch) (*model.Document, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	cur, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Normalize()
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, validationf("title cannot be empty")
	}
	if patch.Status != nil && *patch.Status != model.StatusVigente && *patch.Status != model.StatusRevogado {
		return nil, validationf("unknown status %q", *patch.Status)
	}
	if patch.Date != nil {
		pub, ok := ParsePublicationDate(*patch.Date)
		if !ok {
			return nil, validationf("publication date %q is not DD-MM-YYYY or YYYY-MM-DD", *patch.Date)
		}
		formatted := pub.Format(dateBR)
		patch.Date = &formatted
	}
	wasRevoked := statusOf(cur) == model.StatusRevogado
	if wasRevoked && patch.Status != nil && *patch.Status == model.StatusVigente {
		return nil, fmt.Errorf("document %s: %w: revocation is final", id, errs.ErrRevoked)
	}
	if len(patch.PDFBlob) > 0 && cur.HasPDF() {
		return nil, validationf("document %s already has a PDF", id)
	}

	d, err := s.docs.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	if !wasRevoked && d.Status == model.StatusRevogado {
		s.history.Record(ctx, actor, model.ActionRevogarDocumento, "Revogou um documento", d.ID, d.Title)
		s.bus.Publish(context.WithoutCancel(ctx), events.Event{Kind: events.KindRevoked, DocumentID: d.ID, ActorID: actor.ID})
		return d, nil
	}
	s.history.Record(ctx, actor, model.ActionEditarDocumento, "Editou um documento", d.ID, d.Title)
	s.bus.Publish(context.WithoutCancel(ctx), events.Event{Kind: events.KindUpdated, DocumentID: d.ID, ActorID: actor.ID})
	return d, nil
}

// Revoke confirms the actor's password and moves the document to Revogado.
func (s *DocumentServiceImpl) Revoke(ctx context.Context, actor *model.User, id, password string) (*model.Document, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := confirm(ctx, s.auth, actor, password); err != nil {
		return nil, err
	}
	cur, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if statusOf(cur) == model.StatusRevogado {
		return nil, fmt.Errorf("document %s: %w", id, errs.ErrRevoked)
	}

	revoked := model.StatusRevogado
	d, err := s.docs.Update(ctx, id, model.DocumentPatch{Status: &revoked})
	if err != nil {
		return nil, err
	}
	s.history.Record(ctx, actor, model.ActionRevogarDocumento, "Revogou um documento", d.ID, d.Title)
	s.bus.Publish(context.WithoutCancel(ctx), events.Event{Kind: events.KindRevoked, DocumentID: d.ID, ActorID: actor.ID})
	return d, nil
}
