package model

import (
	"slices"
	"time"
)

// Classification is the sigilo (confidentiality) level of a document.
type Classification string

// Sigilo levels.
const (
	ClassInterno Classification = "interno" // any authenticated user
	ClassGrupo   Classification = "grupo"   // members of GruposAutorizados
	ClassPessoal Classification = "pessoal" // users in UsuariosAutorizados
)

// OrDefault returns c, or ClassInterno when c is empty.
func (c Classification) OrDefault() Classification {
	if c == "" {
		return ClassInterno
	}
	return c
}

// Known reports whether c is one of the three defined levels.
func (c Classification) Known() bool {
	switch c {
	case ClassInterno, ClassGrupo, ClassPessoal:
		return true
	}
	return false
}

// Status is the lifecycle state of a document. Revogado is terminal.
type Status string

// Lifecycle states.
const (
	StatusVigente  Status = "Vigente"
	StatusRevogado Status = "Revogado"
)

// Document is one legal document record.
type Document struct {
	ID                  string
	Title               string
	Date                string // publication date, DD-MM-YYYY or YYYY-MM-DD
	Vigencia            string
	Summary             string
	SummarySimplified   string
	Content             string
	Tipo                string
	Categoria           string
	Assunto             string
	Categories          []string
	HighlightText       string
	Status              Status
	Revogado            bool // legacy flag, mirrors Status
	ClassificacaoSigilo Classification
	GruposAutorizados   []int64 // used when ClassificacaoSigilo == grupo
	UsuariosAutorizados []int64 // used when ClassificacaoSigilo == pessoal
	PDFBlob             []byte
	PDFURL              string
	CreatedAt           time.Time
}

// Normalize fills the defaults every stored document carries:
// a non-empty classification, a status in sync with Revogado, and
// no URL when an inline blob is present.
func (d *Document) Normalize() {
	d.ClassificacaoSigilo = d.ClassificacaoSigilo.OrDefault()
	if d.Status == "" {
		d.Status = StatusVigente
		if d.Revogado {
			d.Status = StatusRevogado
		}
	}
	d.Revogado = d.Status == StatusRevogado
	if len(d.PDFBlob) > 0 {
		d.PDFURL = ""
	}
}

// HasPDF reports whether the document carries a blob or a URL.
func (d *Document) HasPDF() bool { return len(d.PDFBlob) > 0 || d.PDFURL != "" }

// DocumentPatch lists the fields of a partial update. Nil means "leave untouched".
type DocumentPatch struct {
	Title             *string
	Date              *string
	Vigencia          *string
	Summary           *string
	SummarySimplified *string
	Content           *string
	Tipo              *string
	Categoria         *string
	Assunto           *string
	HighlightText     *string
	Categories        *[]string
	Status            *Status
	Revogado          *bool
	PDFBlob           []byte

	// Fixed at creation: a patch may repeat the stored value but not change it.
	ClassificacaoSigilo *Classification
	GruposAutorizados   *[]int64
	UsuariosAutorizados *[]int64
}

// Normalize coerces an explicitly empty classification to interno and
// keeps Status and Revogado in sync (Status wins when both are set).
func (p *DocumentPatch) Normalize() {
	if p.ClassificacaoSigilo != nil && *p.ClassificacaoSigilo == "" {
		c := ClassInterno
		p.ClassificacaoSigilo = &c
	}
	switch {
	case p.Status != nil:
		r := *p.Status == StatusRevogado
		p.Revogado = &r
	case p.Revogado != nil:
		s := StatusVigente
		if *p.Revogado {
			s = StatusRevogado
		}
		p.Status = &s
	}
}

// ChangesSigilo reports whether applying p would alter the classification
// or either authorization list of d.
func (p *DocumentPatch) ChangesSigilo(d *Document) bool {
	if p.ClassificacaoSigilo != nil && *p.ClassificacaoSigilo != d.ClassificacaoSigilo.OrDefault() {
		return true
	}
	if p.GruposAutorizados != nil && !sameIDs(*p.GruposAutorizados, d.GruposAutorizados) {
		return true
	}
	if p.UsuariosAutorizados != nil && !sameIDs(*p.UsuariosAutorizados, d.UsuariosAutorizados) {
		return true
	}
	return false
}

// Apply merges p into d. Sigilo fields are not touched; callers reject
// changes to them with ChangesSigilo first.
func (p *DocumentPatch) Apply(d *Document) {
	setStr := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setStr(&d.Title, p.Title)
	setStr(&d.Date, p.Date)
	setStr(&d.Vigencia, p.Vigencia)
	setStr(&d.Summary, p.Summary)
	setStr(&d.SummarySimplified, p.SummarySimplified)
	setStr(&d.Content, p.Content)
	setStr(&d.Tipo, p.Tipo)
	setStr(&d.Categoria, p.Categoria)
	setStr(&d.Assunto, p.Assunto)
	setStr(&d.HighlightText, p.HighlightText)
	if p.Categories != nil {
		d.Categories = slices.Clone(*p.Categories)
	}
	if p.Status != nil {
		d.Status = *p.Status
	}
	if p.Revogado != nil {
		d.Revogado = *p.Revogado
	}
	if len(p.PDFBlob) > 0 {
		d.PDFBlob = slices.Clone(p.PDFBlob)
		d.PDFURL = ""
	}
	d.Normalize()
}

// sameIDs compares two id lists as sets.
func sameIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	x, y := slices.Clone(a), slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}
