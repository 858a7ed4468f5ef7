package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"tally/internal/core/id"
	"tally/internal/domain"
	"tally/internal/domain/documents"
	"tally/internal/domain/documents/order"
	"tally/internal/infrastructure/storage/postgres"
)

const (
	orderTable     = "doc_orders"
	orderLineTable = "doc_order_lines"
)

// OrderRepo implements order.Repository.
type OrderRepo struct {
	*BaseDocumentRepo[*order.Order]
	lines *lineStore
}

// NewOrderRepo creates a new order repository.
func NewOrderRepo(txm *postgres.TxManager) *OrderRepo {
	return &OrderRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txm,
			orderTable,
			postgres.ExtractDBColumns[order.Order](),
			func() *order.Order { return &order.Order{} },
		),
		lines: newLineStore(txm, orderLineTable),
	}
}

// GetLines returns the snapshot lines of an order.
func (r *OrderRepo) GetLines(ctx context.Context, docID id.ID) ([]documents.SnapshotLine, error) {
	return r.lines.GetLines(ctx, docID)
}

// SaveLines replaces the snapshot lines of an order.
func (r *OrderRepo) SaveLines(ctx context.Context, docID id.ID, lines []documents.SnapshotLine) error {
	return r.lines.SaveLines(ctx, docID, lines)
}

// List retrieves orders with document-specific filters.
func (r *OrderRepo) List(ctx context.Context, filter order.ListFilter) (domain.ListResult[*order.Order], error) {
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
