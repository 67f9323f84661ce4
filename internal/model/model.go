// Package model defines domain entities used by services and repositories.
package model

import (
	"slices"
	"time"
)

// Tokens collects an issued access token.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time // access token expiry (for diagnostics)
}

// Profile is the portal-level role of a user.
type Profile string

// Known profiles.
const (
	ProfileAdmin   Profile = "Administrador"
	ProfileGejur   Profile = "GEJUR"
	ProfileInterno Profile = "UsuarioInterno"
)

// Valid reports whether p is one of the known profiles.
func (p Profile) Valid() bool {
	switch p {
	case ProfileAdmin, ProfileGejur, ProfileInterno:
		return true
	}
	return false
}

// User is a collaborator. ID 0 means the caller carries no identity.
type User struct {
	ID        int64
	Nome      string
	Setor     string
	Funcao    string
	Papel     string // site role, e.g. "Gerente da Área"
	Email     string // secondary key, compared case-insensitively
	Profile   Profile
	PwdHash   []byte // Argon2id(password, Salt)
	Salt      []byte
	CreatedAt time.Time
}

// IsAdmin reports whether u may use management operations.
func (u *User) IsAdmin() bool { return u != nil && u.Profile == ProfileAdmin }

// Group is a named set of users. Membership is the only relationship.
type Group struct {
	ID        int64
	Nome      string
	CreatedAt time.Time
	Membros   []int64
}

// HasMember reports whether userID belongs to g.
func (g Group) HasMember(userID int64) bool { return slices.Contains(g.Membros, userID) }

// TermKind separates the two taxonomy lists.
type TermKind string

// Taxonomy kinds.
const (
	TermAssunto   TermKind = "assunto"
	TermCategoria TermKind = "categoria"
)

// Valid reports whether k is a known taxonomy kind.
func (k TermKind) Valid() bool { return k == TermAssunto || k == TermCategoria }

// Term is a subject (assunto) or category entry used to tag documents.
type Term struct {
	ID        int64
	Kind      TermKind
	Nome      string
	CreatedAt time.Time
}
