package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/vgents/portaljuridico/internal/errs"
	"github.com/vgents/portaljuridico/internal/model"
)

// History query limits.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

const actionColumns = `id, user_id, user_name, tipo, descricao, recurso_id, recurso_nome, timestamp`

type seedAction struct {
	userID  int64
	nome    string
	tipo    model.ActionType
	desc    string
	recurso string
	ago     time.Duration
}

// demoActions populate an empty history so the activity screens have content.
var demoActions = []seedAction{
	{1, "Ana Silva", model.ActionPublicarDocumento, "Publicou um documento", "Contrato de Prestação de Serviços", 15 * time.Minute},
	{2, "Carlos Mendes", model.ActionCriarGrupo, "Criou um novo grupo", "Grupo Jurídico Executivo", 45 * time.Minute},
	{1, "Ana Silva", model.ActionEditarDocumento, "Editou um documento", "Decisão Judicial 2024/001", 2 * time.Hour},
	{5, "Patrícia Costa", model.ActionCriarAssunto, "Criou um novo assunto", "Licitações Públicas", 3 * time.Hour},
	{2, "Carlos Mendes", model.ActionRevogarDocumento, "Revogou um documento", "Contrato Antigo 2023", 5 * time.Hour},
	{8, "Ricardo Souza", model.ActionCriarCategoria, "Criou uma nova categoria", "Contratos Temporários", 6 * time.Hour},
	{1, "Ana Silva", model.ActionAdicionarColaborador, "Adicionou um colaborador ao grupo", "Grupo Jurídico", 8 * time.Hour},
	{2, "Carlos Mendes", model.ActionEditarGrupo, "Editou configurações do grupo", "Grupo Administrativo", 12 * time.Hour},
	{5, "Patrícia Costa", model.ActionCriarDocumento, "Criou um novo documento", "Minuta de Contrato", 24 * time.Hour},
	{1, "Ana Silva", model.ActionEditarAssunto, "Editou um assunto", "Direito Trabalhista", 48 * time.Hour},
}

// ActionRepo implements ActionRepository using PostgreSQL.
type ActionRepo struct {
	db  *DB
	log *zap.Logger
	now func() time.Time

	openMu sync.RWMutex
	opened bool

	// appendMu orders appends so timestamps never go backwards.
	appendMu sync.Mutex
	last     time.Time
}

// NewActionRepo constructs a history repository. Open must be called before use.
func NewActionRepo(db *DB, log *zap.Logger) *ActionRepo {
	if log == nil {
		log = zap.NewNop()
	}
	return &ActionRepo{db: db, log: log.Named("actions"), now: time.Now}
}

// Open checks connectivity and seeds the demonstration records into an empty table.
func (r *ActionRepo) Open(ctx context.Context) error {
	r.openMu.Lock()
	defer r.openMu.Unlock()
	if r.opened {
		return nil
	}
	if err := r.db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("open actions: %w", err)
	}
	seeded, err := r.seedIfEmpty(ctx)
	switch {
	case err != nil:
		r.log.Warn("history seed failed", zap.Error(err))
	case seeded > 0:
		r.log.Info("history seeded", zap.Int("count", seeded))
	}
	r.opened = true
	return nil
}

func (r *ActionRepo) seedIfEmpty(ctx context.Context) (seeded int, err error) {
	err = r.db.inTx(ctx, func(tx pgx.Tx) error {
		var n int64
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM actions`).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		now := r.now().UTC().Truncate(time.Microsecond)
		var (
			users   = make([]int64, 0, len(demoActions))
			names   = make([]string, 0, len(demoActions))
			tipos   = make([]string, 0, len(demoActions))
			descs   = make([]string, 0, len(demoActions))
			recurso = make([]string, 0, len(demoActions))
			stamps  = make([]time.Time, 0, len(demoActions))
		)
		for _, a := range demoActions {
			users = append(users, a.userID)
			names = append(names, a.nome)
			tipos = append(tipos, string(a.tipo))
			descs = append(descs, a.desc)
			recurso = append(recurso, a.recurso)
			stamps = append(stamps, now.Add(-a.ago))
		}
		const ins = `
INSERT INTO actions (user_id, user_name, tipo, descricao, recurso_nome, timestamp)
SELECT * FROM unnest($1::bigint[], $2::text[], $3::text[], $4::text[], $5::text[], $6::timestamptz[])`
		if _, err := tx.Exec(ctx, ins, users, names, tipos, descs, recurso, stamps); err != nil {
			return err
		}
		seeded = len(demoActions)
		return nil
	})
	return seeded, err
}

// Ready returns ErrStoreClosed until Open has succeeded.
func (r *ActionRepo) Ready() error {
	r.openMu.RLock()
	defer r.openMu.RUnlock()
	if !r.opened {
		return errs.ErrStoreClosed
	}
	return nil
}

// nextTimestamp returns now, nudged forward when the clock has not advanced
// past the previous append. Callers hold appendMu.
func (r *ActionRepo) nextTimestamp() time.Time {
	ts := r.now().UTC().Truncate(time.Microsecond)
	if !ts.After(r.last) {
		ts = r.last.Add(time.Microsecond)
	}
	r.last = ts
	return ts
}

// Append stores a new history record.
func (r *ActionRepo) Append(ctx context.Context, a model.NewAction) (model.Action, error) {
	if err := r.Ready(); err != nil {
		return model.Action{}, err
	}
	if !a.Tipo.Valid() {
		return model.Action{}, fmt.Errorf("%w: unknown action type %q", errs.ErrValidation, a.Tipo)
	}

	r.appendMu.Lock()
	defer r.appendMu.Unlock()

	out := model.Action{
		UserID:      a.UserID,
		NomeUsuario: a.NomeUsuario,
		Tipo:        a.Tipo,
		Descricao:   a.Descricao,
		RecursoID:   optional(a.RecursoID),
		RecursoNome: optional(a.RecursoNome),
		Timestamp:   r.nextTimestamp(),
	}
	const q = `
INSERT INTO actions (user_id, user_name, tipo, descricao, recurso_id, recurso_nome, timestamp)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id`
	err := r.db.Pool.QueryRow(ctx, q,
		out.UserID, out.NomeUsuario, string(out.Tipo), out.Descricao, out.RecursoID, out.RecursoNome, out.Timestamp,
	).Scan(&out.ID)
	if err != nil {
		return model.Action{}, err
	}
	return out, nil
}

// Recent returns the latest records of every user.
func (r *ActionRepo) Recent(ctx context.Context, limit int) ([]model.Action, error) {
	q := `SELECT ` + actionColumns + ` FROM actions ORDER BY timestamp DESC, id DESC LIMIT $1`
	return r.list(ctx, q, clampLimit(limit))
}

// ByUser returns the latest records of userID.
func (r *ActionRepo) ByUser(ctx context.Context, userID int64, limit int) ([]model.Action, error) {
	q := `SELECT ` + actionColumns + ` FROM actions WHERE user_id=$1 ORDER BY timestamp DESC, id DESC LIMIT $2`
	return r.list(ctx, q, userID, clampLimit(limit))
}

// ByType returns the latest records of tipo.
func (r *ActionRepo) ByType(ctx context.Context, tipo model.ActionType, limit int) ([]model.Action, error) {
	q := `SELECT ` + actionColumns + ` FROM actions WHERE tipo=$1 ORDER BY timestamp DESC, id DESC LIMIT $2`
	return r.list(ctx, q, string(tipo), clampLimit(limit))
}

func (r *ActionRepo) list(ctx context.Context, q string, args ...any) ([]model.Action, error) {
	if err := r.Ready(); err != nil {
		return nil, err
	}
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Action, 0)
	for rows.Next() {
		var (
			a    model.Action
			tipo string
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.NomeUsuario, &tipo, &a.Descricao, &a.RecursoID, &a.RecursoNome, &a.Timestamp); err != nil {
			return nil, err
		}
		a.Tipo = model.ActionType(tipo)
		out = append(out, a)
	}
	return out, rows.Err()
}

// optional maps "" to nil.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
