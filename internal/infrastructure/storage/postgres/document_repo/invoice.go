package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"tally/internal/core/id"
	"tally/internal/domain"
	"tally/internal/domain/documents"
	"tally/internal/domain/documents/invoice"
	"tally/internal/infrastructure/storage/postgres"
)

const (
	invoiceTable     = "doc_invoices"
	invoiceLineTable = "doc_invoice_lines"
)

// InvoiceRepo implements invoice.Repository.
type InvoiceRepo struct {
	*BaseDocumentRepo[*invoice.Invoice]
	lines *lineStore
}

// NewInvoiceRepo creates a new invoice repository.
func NewInvoiceRepo(txm *postgres.TxManager) *InvoiceRepo {
	return &InvoiceRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txm,
			invoiceTable,
			postgres.ExtractDBColumns[invoice.Invoice](),
			func() *invoice.Invoice { return &invoice.Invoice{} },
		),
		lines: newLineStore(txm, invoiceLineTable),
	}
}

// GetLines returns the snapshot lines of an invoice.
func (r *InvoiceRepo) GetLines(ctx context.Context, docID id.ID) ([]documents.SnapshotLine, error) {
	return r.lines.GetLines(ctx, docID)
}

// SaveLines replaces the snapshot lines of an invoice.
func (r *InvoiceRepo) SaveLines(ctx context.Context, docID id.ID, lines []documents.SnapshotLine) error {
	return r.lines.SaveLines(ctx, docID, lines)
}

// List retrieves invoices with document-specific filters.
func (r *InvoiceRepo) List(ctx context.Context, filter invoice.ListFilter) (domain.ListResult[*invoice.Invoice], error) {
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
		if filter.Overdue != nil && *filter.Overdue {
			q = q.Where("due_date < NOW()").
				Where(squirrel.NotEq{"status": []string{
					invoice.StatusPaid, invoice.StatusCancelled, invoice.StatusRefunded,
				}})
		}
		return q
	})
}
