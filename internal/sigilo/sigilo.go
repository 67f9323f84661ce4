// Package sigilo decides whether a user may view a document given its
// confidentiality classification and the user's group memberships.
//
// Rules:
//   - no user, or a user without identity (ID 0): deny;
//   - interno: allow;
//   - grupo: allow when the user belongs to one of GruposAutorizados;
//   - pessoal: allow when the user is listed in UsuariosAutorizados;
//   - unknown classification: allow.
//
// An empty authorization list on grupo/pessoal is resolved by Policy.EmptyList.
package sigilo

import (
	"slices"

	"github.com/vgents/portaljuridico/internal/model"
)

// Fallback is the outcome applied to grupo/pessoal documents whose
// authorization list is empty.
type Fallback int

const (
	// FailOpen treats an empty list as interno (visible to everyone).
	FailOpen Fallback = iota
	// FailClosed treats an empty list as "nobody is authorized".
	FailClosed
)

// String returns the configuration spelling of f.
func (f Fallback) String() string {
	if f == FailClosed {
		return "closed"
	}
	return "open"
}

// ParseFallback accepts "open" or "closed".
func ParseFallback(s string) (Fallback, bool) {
	switch s {
	case "open", "":
		return FailOpen, true
	case "closed":
		return FailClosed, true
	}
	return FailOpen, false
}

// Policy holds the configurable part of the decision.
type Policy struct {
	EmptyList Fallback
}

// DefaultPolicy keeps restricted documents with nobody assigned visible to all.
var DefaultPolicy = Policy{EmptyList: FailOpen}

// GroupsOfUser returns the ids of the groups that list userID as a member.
func GroupsOfUser(userID int64, groups []model.Group) []int64 {
	if userID == 0 {
		return nil
	}
	var out []int64
	for _, g := range groups {
		if g.HasMember(userID) {
			out = append(out, g.ID)
		}
	}
	return out
}

// CanView applies DefaultPolicy.
func CanView(doc *model.Document, user *model.User, groups []model.Group) bool {
	return DefaultPolicy.CanView(doc, user, groups)
}

// FilterViewable applies DefaultPolicy.
func FilterViewable(docs []model.Document, user *model.User, groups []model.Group) []model.Document {
	return DefaultPolicy.FilterViewable(docs, user, groups)
}

// CanView reports whether user may view doc.
func (p Policy) CanView(doc *model.Document, user *model.User, groups []model.Group) bool {
	if user == nil || user.ID == 0 || doc == nil {
		return false
	}
	return p.Decide(doc, user.ID, GroupsOfUser(user.ID, groups))
}

// Decide is CanView for callers that already resolved the user's
// memberships (memberOf holds group ids).
func (p Policy) Decide(doc *model.Document, userID int64, memberOf []int64) bool {
	if userID == 0 || doc == nil {
		return false
	}
	switch doc.ClassificacaoSigilo.OrDefault() {
	case model.ClassInterno:
		return true
	case model.ClassGrupo:
		if len(doc.GruposAutorizados) == 0 {
			return p.EmptyList == FailOpen
		}
		for _, gid := range doc.GruposAutorizados {
			if slices.Contains(memberOf, gid) {
				return true
			}
		}
		return false
	case model.ClassPessoal:
		if len(doc.UsuariosAutorizados) == 0 {
			return p.EmptyList == FailOpen
		}
		return slices.Contains(doc.UsuariosAutorizados, userID)
	default:
		return true
	}
}

// FilterViewable returns the documents user may view, in input order,
// each with its classification normalized.
func (p Policy) FilterViewable(docs []model.Document, user *model.User, groups []model.Group) []model.Document {
	if user == nil || user.ID == 0 {
		return []model.Document{}
	}
	return p.FilterMember(docs, user.ID, GroupsOfUser(user.ID, groups))
}

// FilterMember is FilterViewable with pre-resolved memberships.
func (p Policy) FilterMember(docs []model.Document, userID int64, memberOf []int64) []model.Document {
	out := make([]model.Document, 0, len(docs))
	if userID == 0 {
		return out
	}
	for _, d := range docs {
		d.ClassificacaoSigilo = d.ClassificacaoSigilo.OrDefault()
		if p.Decide(&d, userID, memberOf) {
			out = append(out, d)
		}
	}
	return out
}
