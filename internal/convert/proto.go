// Package convert maps domain models to and from the structpb payloads
// carried by the gRPC API. Numbers travel as JSON numbers, byte slices as
// standard base64 strings and times as RFC 3339 strings.
package convert

import (
	"encoding/base64"
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	model "github.com/vgents/portaljuridico/internal/model"
)

// Document payload keys.
const (
	KeyID                  = "id"
	KeyTitle               = "title"
	KeyDate                = "date"
	KeyVigencia            = "vigencia"
	KeySummary             = "summary"
	KeySummarySimplified   = "summarySimplified"
	KeyContent             = "content"
	KeyTipo                = "tipo"
	KeyCategoria           = "categoria"
	KeyAssunto             = "assunto"
	KeyCategories          = "categories"
	KeyHighlightText       = "highlightText"
	KeyStatus              = "status"
	KeyRevogado            = "revogado"
	KeyClassificacaoSigilo = "classificacaoSigilo"
	KeyGruposAutorizados   = "gruposAutorizados"
	KeyUsuariosAutorizados = "usuariosAutorizados"
	KeyPDFBlob             = "pdfBlob"
	KeyPDFURL              = "pdfUrl"
	KeyCreatedAt           = "createdAt"
)

// --- helpers ---

func str(s string) *structpb.Value { return structpb.NewStringValue(s) }

func num(n int64) *structpb.Value { return structpb.NewNumberValue(float64(n)) }

func ts(t time.Time) *structpb.Value {
	if t.IsZero() {
		return structpb.NewNullValue()
	}
	return str(t.UTC().Format(time.RFC3339Nano))
}

func strList(ss []string) *structpb.Value {
	vals := make([]*structpb.Value, 0, len(ss))
	for _, s := range ss {
		vals = append(vals, str(s))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: vals})
}

// IDList encodes ids as a list of numbers.
func IDList(ids []int64) *structpb.Value {
	vals := make([]*structpb.Value, 0, len(ids))
	for _, id := range ids {
		vals = append(vals, num(id))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: vals})
}

func fields(s *structpb.Struct) map[string]*structpb.Value {
	if s == nil {
		return nil
	}
	return s.GetFields()
}

// Has reports whether key is present and not null.
func Has(s *structpb.Struct, key string) bool {
	v, ok := fields(s)[key]
	if !ok || v == nil {
		return false
	}
	_, isNull := v.GetKind().(*structpb.Value_NullValue)
	return !isNull
}

// String returns the string at key, or "" when absent.
func String(s *structpb.Struct, key string) (string, error) {
	if !Has(s, key) {
		return "", nil
	}
	sv, ok := fields(s)[key].GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%s: want string", key)
	}
	return sv.StringValue, nil
}

// Int returns the integral number at key, or 0 when absent.
func Int(s *structpb.Struct, key string) (int64, error) {
	if !Has(s, key) {
		return 0, nil
	}
	return toInt(key, fields(s)[key])
}

func toInt(key string, v *structpb.Value) (int64, error) {
	nv, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%s: want number", key)
	}
	f := nv.NumberValue
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("%s: want integer, got %v", key, f)
	}
	return int64(f), nil
}

// Bool returns the boolean at key, or false when absent.
func Bool(s *structpb.Struct, key string) (bool, error) {
	if !Has(s, key) {
		return false, nil
	}
	bv, ok := fields(s)[key].GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, fmt.Errorf("%s: want bool", key)
	}
	return bv.BoolValue, nil
}

// Strings returns the list of strings at key, or nil when absent.
func Strings(s *structpb.Struct, key string) ([]string, error) {
	if !Has(s, key) {
		return nil, nil
	}
	lv, ok := fields(s)[key].GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, fmt.Errorf("%s: want list", key)
	}
	out := make([]string, 0, len(lv.ListValue.GetValues()))
	for i, v := range lv.ListValue.GetValues() {
		sv, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("%s[%d]: want string", key, i)
		}
		out = append(out, sv.StringValue)
	}
	return out, nil
}

// IDs returns the list of integral numbers at key, or nil when absent.
func IDs(s *structpb.Struct, key string) ([]int64, error) {
	if !Has(s, key) {
		return nil, nil
	}
	lv, ok := fields(s)[key].GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, fmt.Errorf("%s: want list", key)
	}
	out := make([]int64, 0, len(lv.ListValue.GetValues()))
	for i, v := range lv.ListValue.GetValues() {
		id, err := toInt(fmt.Sprintf("%s[%d]", key, i), v)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// Bytes decodes the base64 string at key, or nil when absent.
func Bytes(s *structpb.Struct, key string) ([]byte, error) {
	enc, err := String(s, key)
	if err != nil || enc == "" {
		return nil, err
	}
	b, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid base64: %w", key, err)
	}
	return b, nil
}

// Time parses the RFC 3339 string at key, or the zero time when absent.
func Time(s *structpb.Struct, key string) (time.Time, error) {
	raw, err := String(s, key)
	if err != nil || raw == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", key, err)
	}
	return t, nil
}

// reader collects the first decoding error so callers can read many fields in a row.
type reader struct {
	s   *structpb.Struct
	err error
}

func (r *reader) str(key string) string {
	v, err := String(r.s, key)
	r.keep(err)
	return v
}

func (r *reader) optStr(key string) *string {
	if !Has(r.s, key) {
		return nil
	}
	v := r.str(key)
	return &v
}

func (r *reader) int(key string) int64 {
	v, err := Int(r.s, key)
	r.keep(err)
	return v
}

func (r *reader) bool(key string) bool {
	v, err := Bool(r.s, key)
	r.keep(err)
	return v
}

func (r *reader) strings(key string) []string {
	v, err := Strings(r.s, key)
	r.keep(err)
	return v
}

func (r *reader) ids(key string) []int64 {
	v, err := IDs(r.s, key)
	r.keep(err)
	return v
}

func (r *reader) bytes(key string) []byte {
	v, err := Bytes(r.s, key)
	r.keep(err)
	return v
}

func (r *reader) time(key string) time.Time {
	v, err := Time(r.s, key)
	r.keep(err)
	return v
}

func (r *reader) keep(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

// --- Document ---

// ToStructDocument converts a document to its payload.
func ToStructDocument(d model.Document) *structpb.Struct {
	f := map[string]*structpb.Value{
		KeyID:                  str(d.ID),
		KeyTitle:               str(d.Title),
		KeyDate:                str(d.Date),
		KeyVigencia:            str(d.Vigencia),
		KeySummary:             str(d.Summary),
		KeySummarySimplified:   str(d.SummarySimplified),
		KeyContent:             str(d.Content),
		KeyTipo:                str(d.Tipo),
		KeyCategoria:           str(d.Categoria),
		KeyAssunto:             str(d.Assunto),
		KeyCategories:          strList(d.Categories),
		KeyHighlightText:       str(d.HighlightText),
		KeyStatus:              str(string(d.Status)),
		KeyRevogado:            structpb.NewBoolValue(d.Revogado),
		KeyClassificacaoSigilo: str(string(d.ClassificacaoSigilo.OrDefault())),
		KeyGruposAutorizados:   IDList(d.GruposAutorizados),
		KeyUsuariosAutorizados: IDList(d.UsuariosAutorizados),
		KeyPDFURL:              str(d.PDFURL),
		KeyCreatedAt:           ts(d.CreatedAt),
	}
	if len(d.PDFBlob) > 0 {
		f[KeyPDFBlob] = str(base64.StdEncoding.EncodeToString(d.PDFBlob))
	}
	return &structpb.Struct{Fields: f}
}

// FromStructDocument converts a payload to a document.
func FromStructDocument(s *structpb.Struct) (model.Document, error) {
	if s == nil {
		return model.Document{}, fmt.Errorf("nil document")
	}
	r := &reader{s: s}
	d := model.Document{
		ID:                  r.str(KeyID),
		Title:               r.str(KeyTitle),
		Date:                r.str(KeyDate),
		Vigencia:            r.str(KeyVigencia),
		Summary:             r.str(KeySummary),
		SummarySimplified:   r.str(KeySummarySimplified),
		Content:             r.str(KeyContent),
		Tipo:                r.str(KeyTipo),
		Categoria:           r.str(KeyCategoria),
		Assunto:             r.str(KeyAssunto),
		Categories:          r.strings(KeyCategories),
		HighlightText:       r.str(KeyHighlightText),
		Status:              model.Status(r.str(KeyStatus)),
		Revogado:            r.bool(KeyRevogado),
		ClassificacaoSigilo: model.Classification(r.str(KeyClassificacaoSigilo)),
		GruposAutorizados:   r.ids(KeyGruposAutorizados),
		UsuariosAutorizados: r.ids(KeyUsuariosAutorizados),
		PDFBlob:             r.bytes(KeyPDFBlob),
		PDFURL:              r.str(KeyPDFURL),
		CreatedAt:           r.time(KeyCreatedAt),
	}
	if r.err != nil {
		return model.Document{}, r.err
	}
	return d, nil
}

// FromStructPatch converts a payload to a partial update; absent keys stay untouched.
func FromStructPatch(s *structpb.Struct) (model.DocumentPatch, error) {
	r := &reader{s: s}
	p := model.DocumentPatch{
		Title:             r.optStr(KeyTitle),
		Date:              r.optStr(KeyDate),
		Vigencia:          r.optStr(KeyVigencia),
		Summary:           r.optStr(KeySummary),
		SummarySimplified: r.optStr(KeySummarySimplified),
		Content:           r.optStr(KeyContent),
		Tipo:              r.optStr(KeyTipo),
		Categoria:         r.optStr(KeyCategoria),
		Assunto:           r.optStr(KeyAssunto),
		HighlightText:     r.optStr(KeyHighlightText),
		PDFBlob:           r.bytes(KeyPDFBlob),
	}
	if Has(s, KeyCategories) {
		c := r.strings(KeyCategories)
		p.Categories = &c
	}
	if Has(s, KeyStatus) {
		st := model.Status(r.str(KeyStatus))
		p.Status = &st
	}
	if Has(s, KeyRevogado) {
		b := r.bool(KeyRevogado)
		p.Revogado = &b
	}
	if Has(s, KeyClassificacaoSigilo) {
		c := model.Classification(r.str(KeyClassificacaoSigilo))
		p.ClassificacaoSigilo = &c
	}
	if Has(s, KeyGruposAutorizados) {
		g := r.ids(KeyGruposAutorizados)
		p.GruposAutorizados = &g
	}
	if Has(s, KeyUsuariosAutorizados) {
		u := r.ids(KeyUsuariosAutorizados)
		p.UsuariosAutorizados = &u
	}
	if r.err != nil {
		return model.DocumentPatch{}, r.err
	}
	return p, nil
}

// ToStructPatch converts a partial update to its payload (client side).
func ToStructPatch(p model.DocumentPatch) *structpb.Struct {
	f := map[string]*structpb.Value{}
	put := func(key string, v *string) {
		if v != nil {
			f[key] = str(*v)
		}
	}
	put(KeyTitle, p.Title)
	put(KeyDate, p.Date)
	put(KeyVigencia, p.Vigencia)
	put(KeySummary, p.Summary)
	put(KeySummarySimplified, p.SummarySimplified)
	put(KeyContent, p.Content)
	put(KeyTipo, p.Tipo)
	put(KeyCategoria, p.Categoria)
	put(KeyAssunto, p.Assunto)
	put(KeyHighlightText, p.HighlightText)
	if p.Categories != nil {
		f[KeyCategories] = strList(*p.Categories)
	}
	if p.Status != nil {
		f[KeyStatus] = str(string(*p.Status))
	}
	if p.Revogado != nil {
		f[KeyRevogado] = structpb.NewBoolValue(*p.Revogado)
	}
	if p.ClassificacaoSigilo != nil {
		f[KeyClassificacaoSigilo] = str(string(*p.ClassificacaoSigilo))
	}
	if p.GruposAutorizados != nil {
		f[KeyGruposAutorizados] = IDList(*p.GruposAutorizados)
	}
	if p.UsuariosAutorizados != nil {
		f[KeyUsuariosAutorizados] = IDList(*p.UsuariosAutorizados)
	}
	if len(p.PDFBlob) > 0 {
		f[KeyPDFBlob] = str(base64.StdEncoding.EncodeToString(p.PDFBlob))
	}
	return &structpb.Struct{Fields: f}
}

// --- lists ---

// ToList wraps converted elements into a list value.
func ToList[T any](items []T, conv func(T) *structpb.Struct) *structpb.Value {
	vals := make([]*structpb.Value, 0, len(items))
	for _, it := range items {
		vals = append(vals, structpb.NewStructValue(conv(it)))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: vals})
}

// FromList converts every struct element of the list at key.
func FromList[T any](s *structpb.Struct, key string, conv func(*structpb.Struct) (T, error)) ([]T, error) {
	if !Has(s, key) {
		return []T{}, nil
	}
	lv, ok := fields(s)[key].GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, fmt.Errorf("%s: want list", key)
	}
	out := make([]T, 0, len(lv.ListValue.GetValues()))
	for i, v := range lv.ListValue.GetValues() {
		sv, ok := v.GetKind().(*structpb.Value_StructValue)
		if !ok {
			return nil, fmt.Errorf("%s[%d]: want object", key, i)
		}
		it, err := conv(sv.StructValue)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
		}
		out = append(out, it)
	}
	return out, nil
}

// --- User ---

// ToStructUser converts a user to its payload; credentials never leave the server.
func ToStructUser(u model.User) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":        num(u.ID),
		"nome":      str(u.Nome),
		"setor":     str(u.Setor),
		"funcao":    str(u.Funcao),
		"papel":     str(u.Papel),
		"email":     str(u.Email),
		"profile":   str(string(u.Profile)),
		"createdAt": ts(u.CreatedAt),
	}}
}

// FromStructUser converts a payload to a user.
func FromStructUser(s *structpb.Struct) (model.User, error) {
	r := &reader{s: s}
	u := model.User{
		ID:        r.int("id"),
		Nome:      r.str("nome"),
		Setor:     r.str("setor"),
		Funcao:    r.str("funcao"),
		Papel:     r.str("papel"),
		Email:     r.str("email"),
		Profile:   model.Profile(r.str("profile")),
		CreatedAt: r.time("createdAt"),
	}
	return u, r.err
}

// --- Action ---

// ToStructAction converts a history entry to its payload.
func ToStructAction(a model.Action) *structpb.Struct {
	f := map[string]*structpb.Value{
		"id":          num(a.ID),
		"userId":      num(a.UserID),
		"nomeUsuario": str(a.NomeUsuario),
		"tipo":        str(string(a.Tipo)),
		"descricao":   str(a.Descricao),
		"recursoId":   structpb.NewNullValue(),
		"recursoNome": structpb.NewNullValue(),
		"timestamp":   ts(a.Timestamp),
	}
	if a.RecursoID != nil {
		f["recursoId"] = str(*a.RecursoID)
	}
	if a.RecursoNome != nil {
		f["recursoNome"] = str(*a.RecursoNome)
	}
	return &structpb.Struct{Fields: f}
}

// FromStructAction converts a payload to a history entry.
func FromStructAction(s *structpb.Struct) (model.Action, error) {
	r := &reader{s: s}
	a := model.Action{
		ID:          r.int("id"),
		UserID:      r.int("userId"),
		NomeUsuario: r.str("nomeUsuario"),
		Tipo:        model.ActionType(r.str("tipo")),
		Descricao:   r.str("descricao"),
		RecursoID:   r.optStr("recursoId"),
		RecursoNome: r.optStr("recursoNome"),
		Timestamp:   r.time("timestamp"),
	}
	return a, r.err
}

// --- Group ---

// ToStructGroup converts a group to its payload.
func ToStructGroup(g model.Group) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":        num(g.ID),
		"nome":      str(g.Nome),
		"membros":   IDList(g.Membros),
		"createdAt": ts(g.CreatedAt),
	}}
}

// FromStructGroup converts a payload to a group.
func FromStructGroup(s *structpb.Struct) (model.Group, error) {
	r := &reader{s: s}
	g := model.Group{
		ID:        r.int("id"),
		Nome:      r.str("nome"),
		Membros:   r.ids("membros"),
		CreatedAt: r.time("createdAt"),
	}
	return g, r.err
}

// --- Term ---

// ToStructTerm converts a taxonomy term to its payload.
func ToStructTerm(t model.Term) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":        num(t.ID),
		"kind":      str(string(t.Kind)),
		"nome":      str(t.Nome),
		"createdAt": ts(t.CreatedAt),
	}}
}

// FromStructTerm converts a payload to a taxonomy term.
func FromStructTerm(s *structpb.Struct) (model.Term, error) {
	r := &reader{s: s}
	t := model.Term{
		ID:        r.int("id"),
		Kind:      model.TermKind(r.str("kind")),
		Nome:      r.str("nome"),
		CreatedAt: r.time("createdAt"),
	}
	return t, r.err
}
