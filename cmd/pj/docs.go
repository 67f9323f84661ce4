package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/vgents/portaljuridico/internal/client"
	"github.com/vgents/portaljuridico/internal/model"
)

// docView is the printed form of a document; the PDF bytes are left out.
type docView struct {
	ID                  string   `json:"id"`
	Title               string   `json:"title"`
	Date                string   `json:"date,omitempty"`
	Vigencia            string   `json:"vigencia,omitempty"`
	Tipo                string   `json:"tipo,omitempty"`
	Categoria           string   `json:"categoria,omitempty"`
	Assunto             string   `json:"assunto,omitempty"`
	Categories          []string `json:"categories,omitempty"`
	Status              string   `json:"status"`
	ClassificacaoSigilo string   `json:"classificacaoSigilo"`
	GruposAutorizados   []int64  `json:"gruposAutorizados,omitempty"`
	UsuariosAutorizados []int64  `json:"usuariosAutorizados,omitempty"`
	Summary             string   `json:"summary,omitempty"`
	Content             string   `json:"content,omitempty"`
	PDFURL              string   `json:"pdfUrl,omitempty"`
	PDFBytes            int      `json:"pdfBytes,omitempty"`
	CreatedAt           string   `json:"createdAt,omitempty"`
}

func viewOf(d model.Document, full bool) docView {
	v := docView{
		ID:                  d.ID,
		Title:               d.Title,
		Date:                d.Date,
		Tipo:                d.Tipo,
		Categoria:           d.Categoria,
		Status:              string(d.Status),
		ClassificacaoSigilo: string(d.ClassificacaoSigilo.OrDefault()),
	}
	if !d.CreatedAt.IsZero() {
		v.CreatedAt = d.CreatedAt.UTC().Format(time.RFC3339)
	}
	if full {
		v.Vigencia = d.Vigencia
		v.Assunto = d.Assunto
		v.Categories = d.Categories
		v.GruposAutorizados = d.GruposAutorizados
		v.UsuariosAutorizados = d.UsuariosAutorizados
		v.Summary = d.Summary
		v.Content = d.Content
		v.PDFURL = d.PDFURL
		v.PDFBytes = len(d.PDFBlob)
	}
	return v
}

func (a *app) cmdDocs(ctx context.Context, args []string) error {
	fs := newFlags("docs")
	var q client.Query
	var st string
	fs.StringVar(&q.Text, "text", "", "free text")
	fs.StringVar(&q.Tipo, "tipo", "", "document type")
	fs.StringVar(&q.Categoria, "categoria", "", "category")
	fs.StringVar(&q.Number, "number", "", "document number (part of the id)")
	fs.StringVar(&st, "status", "", "Vigente|Revogado")
	fs.StringVar(&q.From, "from", "", "publication date lower bound (DD-MM-YYYY)")
	fs.StringVar(&q.To, "to", "", "publication date upper bound (DD-MM-YYYY)")
	fs.IntVar(&q.Offset, "offset", 0, "skip n results")
	fs.IntVar(&q.Limit, "limit", 0, "at most n results (0 = all)")
	if err := parse(fs, args); err != nil {
		return err
	}
	q.Status = model.Status(st)

	cli, done, err := a.connect(true)
	if err != nil {
		return err
	}
	defer done()
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	page, err := cli.ListDocuments(ctx, q)
	if err != nil {
		return err
	}
	rows := make([]docView, 0, len(page.Documents))
	for _, d := range page.Documents {
		rows = append(rows, viewOf(d, false))
	}
	printJSON(a.out, map[string]any{"total": page.Total, "documents": rows})
	return nil
}

func (a *app) cmdGet(ctx context.Context, args []string) error {
	fs := newFlags("get")
	id := fs.String("id", "", "document id")
	pdfOut := fs.String("pdf", "", "write the attached PDF to this file")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("need --id")
	}

	cli, done, err := a.connect(true)
	if err != nil {
		return err
	}
	defer done()
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	d, err := cli.GetDocument(ctx, *id)
	if err != nil {
		return err
	}
	printJSON(a.out, viewOf(d, true))

	if *pdfOut != "" {
		if len(d.PDFBlob) == 0 {
			return fmt.Errorf("document %s has no inline PDF", d.ID)
		}
		if err := os.WriteFile(*pdfOut, d.PDFBlob, 0o600); err != nil {
			return err
		}
	}
	return nil
}

// docFlags are the document fields settable from the command line.
type docFlags struct {
	fs *pflag.FlagSet

	id, title, date, vigencia, summary, simplified string
	contentFile, tipo, categoria, assunto          string
	highlight, status, sigilo, pdf, pdfURL         string
	categories                                     []string
	groups, users                                  []int64
}

func bindDocFlags(fs *pflag.FlagSet) *docFlags {
	d := &docFlags{fs: fs}
	fs.StringVar(&d.id, "id", "", "document id")
	fs.StringVar(&d.title, "title", "", "title")
	fs.StringVar(&d.date, "date", "", "publication date (DD-MM-YYYY)")
	fs.StringVar(&d.vigencia, "vigencia", "", "validity")
	fs.StringVar(&d.summary, "summary", "", "summary")
	fs.StringVar(&d.simplified, "summary-simplified", "", "plain-language summary")
	fs.StringVar(&d.contentFile, "content", "", "file with the full text ('-' = stdin)")
	fs.StringVar(&d.tipo, "tipo", "", "document type")
	fs.StringVar(&d.categoria, "categoria", "", "category")
	fs.StringVar(&d.assunto, "assunto", "", "subject")
	fs.StringVar(&d.highlight, "highlight", "", "highlight text")
	fs.StringVar(&d.status, "status", "", "Vigente|Revogado")
	fs.StringVar(&d.sigilo, "sigilo", "", "interno|grupo|pessoal")
	fs.StringVar(&d.pdf, "pdf", "", "PDF file to attach")
	fs.StringVar(&d.pdfURL, "pdf-url", "", "external PDF link")
	fs.StringSliceVar(&d.categories, "categories", nil, "category labels")
	fs.Int64SliceVar(&d.groups, "groups", nil, "authorized group ids (sigilo grupo)")
	fs.Int64SliceVar(&d.users, "users", nil, "authorized user ids (sigilo pessoal)")
	return d
}

func (d *docFlags) files(a *app) (content string, pdf []byte, err error) {
	if d.contentFile != "" {
		b, err := readAll(d.contentFile, a.in)
		if err != nil {
			return "", nil, err
		}
		content = string(b)
	}
	if d.pdf != "" {
		if pdf, err = os.ReadFile(d.pdf); err != nil {
			return "", nil, err
		}
	}
	return content, pdf, nil
}

func (d *docFlags) document(a *app) (model.Document, error) {
	content, pdf, err := d.files(a)
	if err != nil {
		return model.Document{}, err
	}
	return model.Document{
		ID:                  d.id,
		Title:               d.title,
		Date:                d.date,
		Vigencia:            d.vigencia,
		Summary:             d.summary,
		SummarySimplified:   d.simplified,
		Content:             content,
		Tipo:                d.tipo,
		Categoria:           d.categoria,
		Assunto:             d.assunto,
		Categories:          d.categories,
		HighlightText:       d.highlight,
		Status:              model.Status(d.status),
		ClassificacaoSigilo: model.Classification(d.sigilo),
		GruposAutorizados:   d.groups,
		UsuariosAutorizados: d.users,
		PDFBlob:             pdf,
		PDFURL:              d.pdfURL,
	}, nil
}

// patch includes only the flags given on the command line.
func (d *docFlags) patch(a *app) (model.DocumentPatch, error) {
	content, pdf, err := d.files(a)
	if err != nil {
		return model.DocumentPatch{}, err
	}
	var p model.DocumentPatch
	set := func(name string, dst **string, v string) {
		if d.fs.Changed(name) {
			*dst = &v
		}
	}
	set("title", &p.Title, d.title)
	set("date", &p.Date, d.date)
	set("vigencia", &p.Vigencia, d.vigencia)
	set("summary", &p.Summary, d.summary)
	set("summary-simplified", &p.SummarySimplified, d.simplified)
	set("content", &p.Content, content)
	set("tipo", &p.Tipo, d.tipo)
	set("categoria", &p.Categoria, d.categoria)
	set("assunto", &p.Assunto, d.assunto)
	set("highlight", &p.HighlightText, d.highlight)
	if d.fs.Changed("categories") {
		p.Categories = &d.categories
	}
	if d.fs.Changed("status") {
		st := model.Status(d.status)
		p.Status = &st
	}
	if d.fs.Changed("sigilo") {
		c := model.Classification(d.sigilo)
		p.ClassificacaoSigilo = &c
	}
	if d.fs.Changed("groups") {
		p.GruposAutorizados = &d.groups
	}
	if d.fs.Changed("users") {
		p.UsuariosAutorizados = &d.users
	}
	p.PDFBlob = pdf
	return p, nil
}

func (a *app) cmdAdd(ctx context.Context, args []string) error {
	fs := newFlags("add")
	df := bindDocFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	if df.title == "" {
		return errors.New("need --title")
	}
	doc, err := df.document(a)
	if err != nil {
		return err
	}

	cli, done, err := a.connect(true)
	if err != nil {
		return err
	}
	defer done()
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	created, err := cli.CreateDocument(ctx, doc)
	if err != nil {
		return err
	}
	printJSON(a.out, viewOf(created, true))
	return nil
}

func (a *app) cmdEdit(ctx context.Context, args []string) error {
	fs := newFlags("edit")
	df := bindDocFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	if df.id == "" {
		return errors.New("need --id")
	}
	p, err := df.patch(a)
	if err != nil {
		return err
	}

	cli, done, err := a.connect(true)
	if err != nil {
		return err
	}
	defer done()
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	updated, err := cli.UpdateDocument(ctx, df.id, p)
	if err != nil {
		return err
	}
	printJSON(a.out, viewOf(updated, true))
	return nil
}

func (a *app) cmdRevoke(ctx context.Context, args []string) error {
	fs := newFlags("revoke")
	id := fs.String("id", "", "document id")
	pw := fs.StringP("password", "p", "", "your password (stdin when omitted)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("need --id")
	}
	password, err := a.password(*pw)
	if err != nil {
		return err
	}

	cli, done, err := a.connect(true)
	if err != nil {
		return err
	}
	defer done()
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	d, err := cli.RevokeDocument(ctx, *id, password)
	if err != nil {
		return err
	}
	printJSON(a.out, viewOf(d, false))
	return nil
}

// cmdWatch prints one JSON line per event until ctx ends or the server closes the stream.
func (a *app) cmdWatch(ctx context.Context, args []string) error {
	if err := parse(newFlags("watch"), args); err != nil {
		return err
	}
	cli, done, err := a.connect(true)
	if err != nil {
		return err
	}
	defer done()

	w, err := cli.WatchDocuments(ctx)
	if err != nil {
		return err
	}
	for {
		e, err := w.Recv()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		fmt.Fprintf(a.out, "{\"at\":%q,\"kind\":%q,\"documentId\":%q,\"actorId\":%d}\n",
			e.At.UTC().Format(time.RFC3339), e.Kind, e.DocumentID, e.ActorID)
	}
}
