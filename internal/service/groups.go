package service

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/vgents/portaljuridico/internal/events"
	"github.com/vgents/portaljuridico/internal/model"
	"github.com/vgents/portaljuridico/internal/repository"
	"github.com/vgents/portaljuridico/internal/sigilo"
)

// GroupService manages groups and answers membership questions.
type GroupService interface {
	MembershipResolver
	// List returns every group with members.
	List(ctx context.Context, viewer *model.User) ([]model.Group, error)
	// Create adds a group after confirming the actor's password.
	Create(ctx context.Context, actor *model.User, nome string, membros []int64, password string) (*model.Group, error)
	// Rename changes a group's name.
	Rename(ctx context.Context, actor *model.User, id int64, nome string) (*model.Group, error)
	// AddMember adds a collaborator after confirming the actor's password.
	AddMember(ctx context.Context, actor *model.User, groupID, userID int64, password string) (*model.Group, error)
	// RemoveMember removes a collaborator after confirming the actor's password.
	RemoveMember(ctx context.Context, actor *model.User, groupID, userID int64, password string) (*model.Group, error)
}

// GroupServiceImpl implements GroupService with a per-user membership cache.
type GroupServiceImpl struct {
	groups  repository.GroupRepository
	history Recorder
	auth    PasswordChecker
	cache   *expirable.LRU[int64, []int64]
	bus     EventPublisher
	log     *zap.Logger

	// gen counts invalidations; a lookup that saw an older value must not fill the cache.
	mu  sync.Mutex
	gen uint64
}

// NewGroupService constructs GroupService. Non-positive cacheSize or ttl
// fall back to 1024 entries and one minute.
func NewGroupService(groups repository.GroupRepository, history Recorder, auth PasswordChecker, cacheSize int, ttl time.Duration, log *zap.Logger) *GroupServiceImpl {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &GroupServiceImpl{
		groups:  groups,
		history: history,
		auth:    auth,
		cache:   expirable.NewLRU[int64, []int64](cacheSize, nil, ttl),
		log:     log.Named("groups"),
	}
}

// WithBus makes group mutations announce themselves on bus, so other
// instances sharing it through a RedisBridge drop their cached memberships.
func (s *GroupServiceImpl) WithBus(bus EventPublisher) *GroupServiceImpl {
	s.bus = bus
	return s
}

// MembershipsOf returns the ids of the groups userID belongs to.
func (s *GroupServiceImpl) MembershipsOf(ctx context.Context, userID int64) ([]int64, error) {
	if userID == 0 {
		return nil, nil
	}
	if ids, ok := s.cache.Get(userID); ok {
		groupCacheHits.Inc()
		return slices.Clone(ids), nil
	}
	groupCacheMisses.Inc()
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	all, err := s.groups.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := sigilo.GroupsOfUser(userID, all)

	s.mu.Lock()
	if s.gen == gen {
		s.cache.Add(userID, ids)
	}
	s.mu.Unlock()
	return slices.Clone(ids), nil
}

// invalidate drops every cached membership; any group mutation can affect any user.
func (s *GroupServiceImpl) invalidate() {
	s.mu.Lock()
	s.gen++
	s.cache.Purge()
	s.mu.Unlock()
}

// changed invalidates the local cache and tells other instances to do the same.
func (s *GroupServiceImpl) changed(ctx context.Context, actor *model.User) {
	s.invalidate()
	if s.bus != nil {
		s.bus.Publish(context.WithoutCancel(ctx), events.Event{Kind: events.KindGroupsChanged, ActorID: actor.ID})
	}
}

// Follow purges the membership cache on every group change seen on evs,
// including those relayed from other instances, until ctx ends or evs closes.
func (s *GroupServiceImpl) Follow(ctx context.Context, evs <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-evs:
			if !ok {
				return
			}
			if e.Kind == events.KindGroupsChanged {
				s.invalidate()
			}
		}
	}
}

// List returns all groups.
func (s *GroupServiceImpl) List(ctx context.Context, viewer *model.User) ([]model.Group, error) {
	if err := requireIdentity(viewer); err != nil {
		return nil, err
	}
	return s.groups.List(ctx)
}

// Create stores a new group.
func (s *GroupServiceImpl) Create(ctx context.Context, actor *model.User, nome string, membros []int64, password string) (*model.Group, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	nome = strings.TrimSpace(nome)
	if nome == "" {
		return nil, validationf("group name is required")
	}
	if err := confirm(ctx, s.auth, actor, password); err != nil {
		return nil, err
	}
	g := &model.Group{Nome: nome, Membros: dedupIDs(membros)}
	if err := s.groups.Create(ctx, g); err != nil {
		return nil, err
	}
	s.changed(ctx, actor)
	s.history.Record(ctx, actor, model.ActionCriarGrupo, "Criou um novo grupo", "", g.Nome)
	return g, nil
}

// Rename changes a group's name.
func (s *GroupServiceImpl) Rename(ctx context.Context, actor *model.User, id int64, nome string) (*model.Group, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	nome = strings.TrimSpace(nome)
	if nome == "" {
		return nil, validationf("group name is required")
	}
	if err := s.groups.Rename(ctx, id, nome); err != nil {
		return nil, err
	}
	s.changed(ctx, actor)
	s.history.Record(ctx, actor, model.ActionEditarGrupo, "Editou configurações do grupo", "", nome)
	return s.groups.Get(ctx, id)
}

// AddMember adds userID to groupID.
func (s *GroupServiceImpl) AddMember(ctx context.Context, actor *model.User, groupID, userID int64, password string) (*model.Group, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := confirm(ctx, s.auth, actor, password); err != nil {
		return nil, err
	}
	if err := s.groups.AddMember(ctx, groupID, userID); err != nil {
		return nil, err
	}
	s.changed(ctx, actor)
	g, err := s.groups.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	s.history.Record(ctx, actor, model.ActionAdicionarColaborador, "Adicionou um colaborador ao grupo", "", g.Nome)
	return g, nil
}

// RemoveMember removes userID from groupID.
func (s *GroupServiceImpl) RemoveMember(ctx context.Context, actor *model.User, groupID, userID int64, password string) (*model.Group, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := confirm(ctx, s.auth, actor, password); err != nil {
		return nil, err
	}
	if err := s.groups.RemoveMember(ctx, groupID, userID); err != nil {
		return nil, err
	}
	s.changed(ctx, actor)
	g, err := s.groups.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	s.history.Record(ctx, actor, model.ActionRemoverColaborador, "Removeu um colaborador do grupo", "", g.Nome)
	return g, nil
}

func dedupIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id != 0 && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
