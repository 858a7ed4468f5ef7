package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"tally/internal/core/id"
	"tally/internal/domain"
	"tally/internal/domain/documents"
	"tally/internal/domain/documents/quote"
	"tally/internal/infrastructure/storage/postgres"
)

const (
	quoteTable     = "doc_quotes"
	quoteLineTable = "doc_quote_lines"
)

// QuoteRepo implements quote.Repository.
type QuoteRepo struct {
	*BaseDocumentRepo[*quote.Quote]
	lines *lineStore
}

// NewQuoteRepo creates a new quote repository.
func NewQuoteRepo(txm *postgres.TxManager) *QuoteRepo {
	return &QuoteRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txm,
			quoteTable,
			postgres.ExtractDBColumns[quote.Quote](),
			func() *quote.Quote { return &quote.Quote{} },
		),
		lines: newLineStore(txm, quoteLineTable),
	}
}

// GetLines returns the snapshot lines of a quote.
func (r *QuoteRepo) GetLines(ctx context.Context, docID id.ID) ([]documents.SnapshotLine, error) {
	return r.lines.GetLines(ctx, docID)
}

// SaveLines replaces the snapshot lines of a quote.
func (r *QuoteRepo) SaveLines(ctx context.Context, docID id.ID, lines []documents.SnapshotLine) error {
	return r.lines.SaveLines(ctx, docID, lines)
}

// List retrieves quotes with document-specific filters.
func (r *QuoteRepo) List(ctx context.Context, filter quote.ListFilter) (domain.ListResult[*quote.Quote], error) {
	return r.ListWith(ctx, filter.ListFilter, func(q squirrel.SelectBuilder) squirrel.SelectBuilder {
		if filter.ClientID != nil {
			q = q.Where(squirrel.Eq{"client_id": *filter.ClientID})
		}
		if filter.Status != nil {
			q = q.Where(squirrel.Eq{"status": *filter.Status})
		}
		if filter.DateFrom != nil {
			q = q.Where(squirrel.GtOrEq{"date": *filter.DateFrom})
		}
		if filter.DateTo != nil {
			q = q.Where(squirrel.LtOrEq{"date": *filter.DateTo})
		}
		return q
	})
}
