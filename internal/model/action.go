package model

import "time"

// ActionType tags a history record.
type ActionType string

// Action types recorded by the portal.
const (
	ActionCriarDocumento       ActionType = "criar_documento"
	ActionEditarDocumento      ActionType = "editar_documento"
	ActionPublicarDocumento    ActionType = "publicar_documento"
	ActionRevogarDocumento     ActionType = "revogar_documento"
	ActionCriarGrupo           ActionType = "criar_grupo"
	ActionEditarGrupo          ActionType = "editar_grupo"
	ActionCriarAssunto         ActionType = "criar_assunto"
	ActionEditarAssunto        ActionType = "editar_assunto"
	ActionCriarCategoria       ActionType = "criar_categoria"
	ActionEditarCategoria      ActionType = "editar_categoria"
	ActionAdicionarColaborador ActionType = "adicionar_colaborador"
	ActionRemoverColaborador   ActionType = "remover_colaborador"
)

// Valid reports whether t is a known action type.
func (t ActionType) Valid() bool {
	switch t {
	case ActionCriarDocumento, ActionEditarDocumento, ActionPublicarDocumento, ActionRevogarDocumento,
		ActionCriarGrupo, ActionEditarGrupo, ActionCriarAssunto, ActionEditarAssunto,
		ActionCriarCategoria, ActionEditarCategoria, ActionAdicionarColaborador, ActionRemoverColaborador:
		return true
	}
	return false
}

// NewAction is the caller-supplied part of a history record.
type NewAction struct {
	UserID      int64
	NomeUsuario string // denormalized at write time
	Tipo        ActionType
	Descricao   string
	RecursoID   string // optional
	RecursoNome string // optional
}

// Action is an immutable audit-log entry.
type Action struct {
	ID          int64 // assigned by the store, strictly increasing
	UserID      int64
	NomeUsuario string
	Tipo        ActionType
	Descricao   string
	RecursoID   *string
	RecursoNome *string
	Timestamp   time.Time // assigned by the store
}
