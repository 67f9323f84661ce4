package convert

import (
	"slices"
	"strings"
	"testing"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vgents/portaljuridico/internal/events"
	model "github.com/vgents/portaljuridico/internal/model"
)

func TestDocument_RoundTrip(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 3, 5, 14, 0, 0, 123000, time.UTC)
	in := model.Document{
		ID: "DOC-001-2026", Title: "Resolução", Date: "05-03-2026", Vigencia: "05-03-2026",
		Summary: "s", SummarySimplified: "ss", Content: "c", Tipo: "Resolução",
		Categoria: "Normas", Assunto: "Licitações", Categories: []string{"Resolução", "Licitações"},
		HighlightText: "h", Status: model.StatusVigente, ClassificacaoSigilo: model.ClassGrupo,
		GruposAutorizados: []int64{10, 11}, PDFBlob: []byte{0x25, 0x50, 0x44, 0x46, 0x00, 0xff},
		CreatedAt: created,
	}
	s := ToStructDocument(in)
	if got := s.GetFields()[KeyPDFBlob].GetStringValue(); got != "JVBERgD/" {
		t.Fatalf("blob not base64: %q", got)
	}
	if got := s.GetFields()[KeyGruposAutorizados].GetListValue().GetValues()[1].GetNumberValue(); got != 11 {
		t.Fatalf("ids not numbers: %v", got)
	}

	out, err := FromStructDocument(s)
	if err != nil {
		t.Fatalf("FromStructDocument: %v", err)
	}
	if out.ID != in.ID || out.Title != in.Title || out.Status != in.Status || out.ClassificacaoSigilo != in.ClassificacaoSigilo {
		t.Fatalf("scalar mismatch: %+v", out)
	}
	if !slices.Equal(out.Categories, in.Categories) || !slices.Equal(out.GruposAutorizados, in.GruposAutorizados) {
		t.Fatalf("list mismatch: %+v", out)
	}
	if string(out.PDFBlob) != string(in.PDFBlob) || !out.CreatedAt.Equal(created) {
		t.Fatalf("blob/time mismatch: %+v", out)
	}
	if len(out.UsuariosAutorizados) != 0 {
		t.Fatalf("empty list should stay empty")
	}
}

func TestDocument_DefaultsAndErrors(t *testing.T) {
	t.Parallel()

	s := ToStructDocument(model.Document{ID: "X"})
	if s.GetFields()[KeyClassificacaoSigilo].GetStringValue() != "interno" {
		t.Fatalf("missing classification must be sent as interno")
	}
	if _, ok := s.GetFields()[KeyCreatedAt].GetKind().(*structpb.Value_NullValue); !ok {
		t.Fatalf("zero time must be null")
	}
	if _, ok := s.GetFields()[KeyPDFBlob]; ok {
		t.Fatalf("no blob key expected")
	}

	if _, err := FromStructDocument(nil); err == nil {
		t.Fatalf("want error on nil")
	}

	bad := []map[string]any{
		{KeyTitle: 12.0},
		{KeyGruposAutorizados: []any{1.5}},
		{KeyGruposAutorizados: "1,2"},
		{KeyCategories: []any{"a", 1.0}},
		{KeyPDFBlob: "%%%"},
		{KeyCreatedAt: "yesterday"},
		{KeyRevogado: "true"},
	}
	for _, m := range bad {
		st, err := structpb.NewStruct(m)
		if err != nil {
			t.Fatalf("NewStruct: %v", err)
		}
		if _, err := FromStructDocument(st); err == nil {
			t.Fatalf("%v: want decode error", m)
		}
	}
}

func TestPatch_Presence(t *testing.T) {
	t.Parallel()

	st, err := structpb.NewStruct(map[string]any{
		KeyTitle:             "Novo título",
		KeyStatus:            "Revogado",
		KeyCategories:        []any{},
		KeyGruposAutorizados: []any{10.0},
		KeySummary:           nil,
	})
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	p, err := FromStructPatch(st)
	if err != nil {
		t.Fatalf("FromStructPatch: %v", err)
	}
	if p.Title == nil || *p.Title != "Novo título" {
		t.Fatalf("title: %v", p.Title)
	}
	if p.Status == nil || *p.Status != model.StatusRevogado {
		t.Fatalf("status: %v", p.Status)
	}
	if p.Categories == nil || len(*p.Categories) != 0 {
		t.Fatalf("explicit empty list must be kept: %v", p.Categories)
	}
	if p.GruposAutorizados == nil || !slices.Equal(*p.GruposAutorizados, []int64{10}) {
		t.Fatalf("groups: %v", p.GruposAutorizados)
	}
	if p.Summary != nil || p.Date != nil || p.Revogado != nil || p.ClassificacaoSigilo != nil {
		t.Fatalf("absent or null keys must stay nil: %+v", p)
	}

	back, err := FromStructPatch(ToStructPatch(p))
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if *back.Title != *p.Title || *back.Status != *p.Status || back.Summary != nil {
		t.Fatalf("round trip mismatch: %+v", back)
	}

	if _, err := FromStructPatch(nil); err != nil {
		t.Fatalf("nil payload is an empty patch: %v", err)
	}
}

func TestLists(t *testing.T) {
	t.Parallel()

	groups := []model.Group{{ID: 1, Nome: "a", Membros: []int64{2}}, {ID: 2, Nome: "b"}}
	s := &structpb.Struct{Fields: map[string]*structpb.Value{"groups": ToList(groups, ToStructGroup)}}

	got, err := FromList(s, "groups", FromStructGroup)
	if err != nil {
		t.Fatalf("FromList: %v", err)
	}
	if len(got) != 2 || got[0].Nome != "a" || !slices.Equal(got[0].Membros, []int64{2}) {
		t.Fatalf("got %+v", got)
	}

	empty, err := FromList(&structpb.Struct{}, "groups", FromStructGroup)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("absent list: %v %v", empty, err)
	}

	s.Fields["groups"] = structpb.NewListValue(&structpb.ListValue{Values: []*structpb.Value{structpb.NewStringValue("x")}})
	if _, err := FromList(s, "groups", FromStructGroup); err == nil || !strings.Contains(err.Error(), "groups[0]") {
		t.Fatalf("want positional error, got %v", err)
	}
}

func TestUserActionTermEvent(t *testing.T) {
	t.Parallel()

	u := model.User{ID: 7, Nome: "Ana", Email: "ana@p.gov", Profile: model.ProfileAdmin, PwdHash: []byte{1}, Salt: []byte{2}}
	us := ToStructUser(u)
	for _, k := range []string{"pwdHash", "salt", "PwdHash"} {
		if _, ok := us.GetFields()[k]; ok {
			t.Fatalf("credential field %q leaked", k)
		}
	}
	gotU, err := FromStructUser(us)
	if err != nil || gotU.ID != 7 || gotU.Profile != model.ProfileAdmin {
		t.Fatalf("user: %+v %v", gotU, err)
	}

	rid := "DOC-001-2026"
	a := model.Action{ID: 3, UserID: 7, NomeUsuario: "Ana", Tipo: model.ActionCriarDocumento, RecursoID: &rid, Timestamp: time.Now().UTC()}
	gotA, err := FromStructAction(ToStructAction(a))
	if err != nil {
		t.Fatalf("action: %v", err)
	}
	if gotA.RecursoID == nil || *gotA.RecursoID != rid || gotA.RecursoNome != nil {
		t.Fatalf("optional fields: %+v", gotA)
	}
	if !gotA.Timestamp.Equal(a.Timestamp) {
		t.Fatalf("timestamp: %v vs %v", gotA.Timestamp, a.Timestamp)
	}

	term := model.Term{ID: 4, Kind: model.TermCategoria, Nome: "Contratos"}
	gotT, err := FromStructTerm(ToStructTerm(term))
	if err != nil || gotT != term {
		t.Fatalf("term: %+v %v", gotT, err)
	}

	e := events.Event{ID: "e1", Kind: events.KindRevoked, DocumentID: "D", ActorID: 7, At: time.Now().UTC(), Origin: "node-a"}
	es := ToStructEvent(e)
	if _, ok := es.GetFields()["origin"]; ok {
		t.Fatalf("origin must not be streamed")
	}
	gotE, err := FromStructEvent(es)
	if err != nil || gotE.Kind != e.Kind || gotE.ActorID != 7 || !gotE.At.Equal(e.At) {
		t.Fatalf("event: %+v %v", gotE, err)
	}
}
