package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vgents/portaljuridico/internal/errs"
	"github.com/vgents/portaljuridico/internal/model"
	"github.com/vgents/portaljuridico/internal/repository"
)

// HistoryService records and reads the audit trail.
type HistoryService interface {
	Recorder
	// Recent returns the latest entries; administrators only.
	Recent(ctx context.Context, viewer *model.User, limit int) ([]model.Action, error)
	// ByUser returns the latest entries of userID; users may read their own.
	ByUser(ctx context.Context, viewer *model.User, userID int64, limit int) ([]model.Action, error)
	// ByType returns the latest entries of one type; administrators only.
	ByType(ctx context.Context, viewer *model.User, tipo model.ActionType, limit int) ([]model.Action, error)
}

// HistoryServiceImpl implements HistoryService.
type HistoryServiceImpl struct {
	actions repository.ActionRepository
	log     *zap.Logger
}

// NewHistoryService constructs HistoryService.
func NewHistoryService(actions repository.ActionRepository, log *zap.Logger) *HistoryServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &HistoryServiceImpl{actions: actions, log: log.Named("history")}
}

// Record appends an entry for actor. Failures are logged, never returned:
// the audited operation has already happened.
func (s *HistoryServiceImpl) Record(ctx context.Context, actor *model.User, tipo model.ActionType, descricao, recursoID, recursoNome string) {
	if actor == nil {
		return
	}
	_, err := s.actions.Append(ctx, model.NewAction{
		UserID:      actor.ID,
		NomeUsuario: actor.Nome,
		Tipo:        tipo,
		Descricao:   descricao,
		RecursoID:   recursoID,
		RecursoNome: recursoNome,
	})
	if err != nil {
		s.log.Warn("history append failed",
			zap.Int64("user", actor.ID),
			zap.String("tipo", string(tipo)),
			zap.String("recurso", recursoID),
			zap.Error(err))
	}
}

// Recent returns the latest entries of every user.
func (s *HistoryServiceImpl) Recent(ctx context.Context, viewer *model.User, limit int) ([]model.Action, error) {
	if err := requireAdmin(viewer); err != nil {
		return nil, err
	}
	return s.actions.Recent(ctx, limit)
}

// ByUser returns the latest entries of userID.
func (s *HistoryServiceImpl) ByUser(ctx context.Context, viewer *model.User, userID int64, limit int) ([]model.Action, error) {
	if err := requireIdentity(viewer); err != nil {
		return nil, err
	}
	if viewer.ID != userID && !viewer.IsAdmin() {
		return nil, fmt.Errorf("%w: history of another user", errs.ErrForbidden)
	}
	return s.actions.ByUser(ctx, userID, limit)
}

// ByType returns the latest entries of tipo.
func (s *HistoryServiceImpl) ByType(ctx context.Context, viewer *model.User, tipo model.ActionType, limit int) ([]model.Action, error) {
	if err := requireAdmin(viewer); err != nil {
		return nil, err
	}
	if !tipo.Valid() {
		return nil, validationf("unknown action type %q", tipo)
	}
	return s.actions.ByType(ctx, tipo, limit)
}
