package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/vgents/portaljuridico/internal/errs"
	"github.com/vgents/portaljuridico/internal/model"
)

// LegacyPrefixes are the id prefixes of the retired sample documents
// removed the first time the store is opened.
var LegacyPrefixes = []string{"MIN-", "INF-", "DEC-", "CON-", "LIC-"}

const legacyCleanupMarker = "legacy_prefix_cleanup"

const docColumns = `id, title, publication_date, vigencia, summary, summary_simplified, content,
tipo, categoria, assunto, categories, highlight_text, status, revogado,
classificacao_sigilo, grupos_autorizados, usuarios_autorizados, pdf_blob, pdf_url, created_at`

// DocumentRepo implements DocumentRepository using PostgreSQL.
type DocumentRepo struct {
	db  *DB
	log *zap.Logger
	now func() time.Time

	mu     sync.RWMutex
	opened bool
}

// NewDocumentRepo constructs a document repository. Open must be called before use.
func NewDocumentRepo(db *DB, log *zap.Logger) *DocumentRepo {
	if log == nil {
		log = zap.NewNop()
	}
	return &DocumentRepo{db: db, log: log.Named("documents"), now: time.Now}
}

// Open checks connectivity and runs the one-time legacy cleanup.
func (r *DocumentRepo) Open(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.opened {
		return nil
	}
	if err := r.db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("open documents: %w", err)
	}
	n, err := r.cleanupLegacy(ctx)
	if err != nil {
		r.log.Warn("legacy cleanup failed", zap.Error(err))
	} else if n > 0 {
		r.log.Info("legacy documents removed", zap.Int64("count", n))
	}
	r.opened = true
	return nil
}

// cleanupLegacy deletes legacy-prefixed documents unless the marker says it already ran.
func (r *DocumentRepo) cleanupLegacy(ctx context.Context) (removed int64, err error) {
	err = r.db.inTx(ctx, func(tx pgx.Tx) error {
		const mark = `INSERT INTO store_markers (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`
		tag, err := tx.Exec(ctx, mark, legacyCleanupMarker)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		patterns := make([]string, 0, len(LegacyPrefixes))
		for _, p := range LegacyPrefixes {
			patterns = append(patterns, p+"%")
		}
		const del = `DELETE FROM documents WHERE id LIKE ANY($1)`
		tag, err = tx.Exec(ctx, del, patterns)
		if err != nil {
			return err
		}
		removed = tag.RowsAffected()
		return nil
	})
	return removed, err
}

// Ready returns ErrStoreClosed until Open has succeeded.
func (r *DocumentRepo) Ready() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.opened {
		return errs.ErrStoreClosed
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var (
		d      model.Document
		status string
		class  string
	)
	if err := row.Scan(
		&d.ID, &d.Title, &d.Date, &d.Vigencia, &d.Summary, &d.SummarySimplified, &d.Content,
		&d.Tipo, &d.Categoria, &d.Assunto, &d.Categories, &d.HighlightText, &status, &d.Revogado,
		&class, &d.GruposAutorizados, &d.UsuariosAutorizados, &d.PDFBlob, &d.PDFURL, &d.CreatedAt,
	); err != nil {
		return nil, err
	}
	d.Status = model.Status(status)
	d.ClassificacaoSigilo = model.Classification(class).OrDefault()
	return &d, nil
}

// GetAll returns every document, newest first.
func (r *DocumentRepo) GetAll(ctx context.Context) ([]model.Document, error) {
	if err := r.Ready(); err != nil {
		return nil, err
	}
	q := `SELECT ` + docColumns + ` FROM documents ORDER BY created_at DESC, id DESC`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// Get returns one document.
func (r *DocumentRepo) Get(ctx context.Context, id string) (*model.Document, error) {
	if err := r.Ready(); err != nil {
		return nil, err
	}
	q := `SELECT ` + docColumns + ` FROM documents WHERE id=$1`
	d, err := scanDocument(r.db.Pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	return d, err
}

// Add inserts doc after normalizing it; doc is updated in place.
func (r *DocumentRepo) Add(ctx context.Context, doc *model.Document) error {
	if err := r.Ready(); err != nil {
		return err
	}
	if doc.ID == "" {
		return fmt.Errorf("%w: document id is required", errs.ErrValidation)
	}
	doc.Normalize()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = r.now().UTC()
	}
	q := `INSERT INTO documents (` + docColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`
	_, err := r.db.Pool.Exec(ctx, q,
		doc.ID, doc.Title, doc.Date, doc.Vigencia, doc.Summary, doc.SummarySimplified, doc.Content,
		doc.Tipo, doc.Categoria, doc.Assunto, orEmpty(doc.Categories), doc.HighlightText,
		string(doc.Status), doc.Revogado, string(doc.ClassificacaoSigilo),
		orEmpty(doc.GruposAutorizados), orEmpty(doc.UsuariosAutorizados), doc.PDFBlob, doc.PDFURL, doc.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("document %s: %w", doc.ID, errs.ErrAlreadyExists)
	}
	return err
}

// Update merges patch into the stored document under a row lock.
func (r *DocumentRepo) Update(ctx context.Context, id string, patch model.DocumentPatch) (*model.Document, error) {
	if err := r.Ready(); err != nil {
		return nil, err
	}
	var out *model.Document
	err := r.db.inTx(ctx, func(tx pgx.Tx) error {
		sel := `SELECT ` + docColumns + ` FROM documents WHERE id=$1 FOR UPDATE`
		d, err := scanDocument(tx.QueryRow(ctx, sel, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrNotFound
		}
		if err != nil {
			return err
		}

		patch.Normalize()
		if patch.ChangesSigilo(d) {
			return fmt.Errorf("document %s: %w: classification and authorization lists are fixed at creation", id, errs.ErrImmutableField)
		}
		patch.Apply(d)

		const upd = `
UPDATE documents SET
  title=$2, publication_date=$3, vigencia=$4, summary=$5, summary_simplified=$6, content=$7,
  tipo=$8, categoria=$9, assunto=$10, categories=$11, highlight_text=$12, status=$13, revogado=$14,
  pdf_blob=$15, pdf_url=$16
WHERE id=$1`
		if _, err := tx.Exec(ctx, upd,
			d.ID, d.Title, d.Date, d.Vigencia, d.Summary, d.SummarySimplified, d.Content,
			d.Tipo, d.Categoria, d.Assunto, orEmpty(d.Categories), d.HighlightText,
			string(d.Status), d.Revogado, d.PDFBlob, d.PDFURL,
		); err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// orEmpty keeps NOT NULL array columns from receiving NULL.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
