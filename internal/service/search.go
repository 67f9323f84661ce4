package service

import (
	"slices"
	"strings"
	"time"

	"github.com/vgents/portaljuridico/internal/model"
)

// Filter narrows a document listing. Empty fields do not filter.
type Filter struct {
	Text      string       // substring of id, title, summaries, tipo, categoria or assunto
	Tipo      string       // substring of tipo (or of the first category when tipo is empty)
	Categoria string       // substring of categoria or any category label
	Number    string       // substring of the document id
	Status    model.Status // exact status
	From      time.Time    // publication date lower bound, inclusive
	To        time.Time    // publication date upper bound, inclusive (whole day)
	Offset    int
	Limit     int // <= 0 means all
}

// Page is one slice of a filtered, sorted listing.
type Page struct {
	Documents []model.Document
	Total     int // matches before pagination
}

const (
	dateBR  = "02-01-2006"
	dateISO = "2006-01-02"
)

// ParsePublicationDate accepts DD-MM-YYYY or YYYY-MM-DD.
func ParsePublicationDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	layout := dateBR
	if len(parts[0]) == 4 {
		layout = dateISO
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), sub)
}

func (f Filter) matches(d *model.Document) bool {
	if t := strings.ToLower(strings.TrimSpace(f.Text)); t != "" {
		if !containsFold(d.ID, t) && !containsFold(d.Title, t) && !containsFold(d.Summary, t) &&
			!containsFold(d.SummarySimplified, t) && !containsFold(d.Tipo, t) &&
			!containsFold(d.Categoria, t) && !containsFold(d.Assunto, t) {
			return false
		}
	}
	if t := strings.ToLower(strings.TrimSpace(f.Tipo)); t != "" {
		tipo := d.Tipo
		if tipo == "" && len(d.Categories) > 0 {
			tipo = d.Categories[0]
		}
		if !containsFold(tipo, t) {
			return false
		}
	}
	if c := strings.ToLower(strings.TrimSpace(f.Categoria)); c != "" {
		if !containsFold(d.Categoria, c) && !slices.ContainsFunc(d.Categories, func(s string) bool { return containsFold(s, c) }) {
			return false
		}
	}
	if n := strings.ToLower(strings.TrimSpace(f.Number)); n != "" && !containsFold(d.ID, n) {
		return false
	}
	if f.Status != "" && statusOf(d) != f.Status {
		return false
	}
	if !f.From.IsZero() || !f.To.IsZero() {
		pub, ok := ParsePublicationDate(d.Date)
		if !ok {
			return false
		}
		if !f.From.IsZero() && pub.Before(f.From) {
			return false
		}
		if !f.To.IsZero() && pub.After(endOfDay(f.To)) {
			return false
		}
	}
	return true
}

func statusOf(d *model.Document) model.Status {
	if d.Status != "" {
		return d.Status
	}
	if d.Revogado {
		return model.StatusRevogado
	}
	return model.StatusVigente
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// SortByRecency orders documents newest first: by creation time when both
// have one, then by publication date, then by id descending. Documents with
// a creation time precede those without; undated ones go last.
func SortByRecency(docs []model.Document) {
	slices.SortStableFunc(docs, func(a, b model.Document) int {
		switch {
		case !a.CreatedAt.IsZero() && !b.CreatedAt.IsZero():
			if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
				return c
			}
			return strings.Compare(b.ID, a.ID)
		case !a.CreatedAt.IsZero():
			return -1
		case !b.CreatedAt.IsZero():
			return 1
		}
		da, okA := ParsePublicationDate(a.Date)
		db, okB := ParsePublicationDate(b.Date)
		switch {
		case okA && okB:
			if c := db.Compare(da); c != 0 {
				return c
			}
		case okA:
			return -1
		case okB:
			return 1
		}
		return strings.Compare(b.ID, a.ID)
	})
}

func paginate(docs []model.Document, offset, limit int) []model.Document {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(docs) {
		return []model.Document{}
	}
	docs = docs[offset:]
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs
}
