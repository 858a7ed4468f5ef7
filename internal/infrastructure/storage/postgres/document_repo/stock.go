package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tally/internal/core/id"
	"tally/internal/core/types"
	"tally/internal/domain"
	"tally/internal/domain/stock"
	"tally/internal/infrastructure/storage/postgres"
)

const (
	stockMovementTable   = "doc_stock_movements"
	stockAttachmentTable = "doc_stock_attachments"
)

// StockMovementRepo implements stock.Repository.
type StockMovementRepo struct {
	*BaseDocumentRepo[*stock.Movement]
}

// NewStockMovementRepo creates a new stock movement repository.
func NewStockMovementRepo(txm *postgres.TxManager) *StockMovementRepo {
	return &StockMovementRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txm,
			stockMovementTable,
			postgres.ExtractDBColumns[stock.Movement](),
			func() *stock.Movement { return &stock.Movement{} },
		),
	}
}

// SetDeletionMark soft-deletes or restores a movement.
func (r *StockMovementRepo) SetDeletionMark(ctx context.Context, movementID id.ID, marked bool) error {
	q := r.Builder().
		Update(stockMovementTable).
		Set("deletion_mark", marked).
		Set("updated_at", squirrel.Expr("NOW()")).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": movementID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build set deletion mark: %w", err)
	}

	result, err := r.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set deletion mark: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("movement %s not found", movementID)
	}

	return nil
}

// HardDelete removes a movement and its attachment rows permanently.
// Must run inside a transaction.
func (r *StockMovementRepo) HardDelete(ctx context.Context, movementID id.ID) error {
	attQ := r.Builder().
		Delete(stockAttachmentTable).
		Where(squirrel.Eq{"movement_id": movementID})

	attSQL, attArgs, err := attQ.ToSql()
	if err != nil {
		return fmt.Errorf("build delete attachments: %w", err)
	}
	if _, err := r.Querier(ctx).Exec(ctx, attSQL, attArgs...); err != nil {
		return fmt.Errorf("delete attachments: %w", err)
	}

	return r.BaseDocumentRepo.HardDelete(ctx, movementID)
}

// List retrieves movements with ledger-specific filters.
func (r *StockMovementRepo) List(ctx context.Context, filter stock.ListFilter) (domain.ListResult[*stock.Movement], error) {
	return r.ListWith(ctx, filter.ListFilter, func(q squirrel.SelectBuilder) squirrel.SelectBuilder {
		if filter.ProductID != nil {
			q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
		}
		if filter.Type != nil {
			q = q.Where(squirrel.Eq{"type": *filter.Type})
		}
		if filter.ProviderID != nil {
			q = q.Where(squirrel.Eq{"provider_id": *filter.ProviderID})
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

// SumActiveDeltas returns the sum of quantities over non-deleted movements
// for a product. This is the ledger truth the cached product quantity is
// reconciled against.
func (r *StockMovementRepo) SumActiveDeltas(ctx context.Context, productID id.ID) (types.Quantity, error) {
	q := r.Builder().
		Select("COALESCE(SUM(quantity), 0)").
		From(stockMovementTable).
		Where(squirrel.Eq{"product_id": productID}).
		Where(squirrel.Eq{"deletion_mark": false})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var total int64
	if err := r.Querier(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum active deltas: %w", err)
	}

	return types.Quantity(total), nil
}

// GetAttachments returns attachment metadata for a movement.
func (r *StockMovementRepo) GetAttachments(ctx context.Context, movementID id.ID) ([]stock.Attachment, error) {
	q := r.Builder().
		Select("id", "movement_id", "file_name", "content_type", "size_bytes", "deletion_mark", "created_at").
		From(stockAttachmentTable).
		Where(squirrel.Eq{"movement_id": movementID}).
		OrderBy("created_at ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var attachments []stock.Attachment
	if err := pgxscan.Select(ctx, r.Querier(ctx), &attachments, sql, args...); err != nil {
		return nil, fmt.Errorf("get attachments: %w", err)
	}

	return attachments, nil
}

// SaveAttachments inserts attachment metadata rows for a movement.
func (r *StockMovementRepo) SaveAttachments(ctx context.Context, movementID id.ID, attachments []stock.Attachment) error {
	if len(attachments) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(stockAttachmentTable).
		Columns("id", "movement_id", "file_name", "content_type", "size_bytes", "deletion_mark", "created_at")

	for _, a := range attachments {
		q = q.Values(a.ID, movementID, a.FileName, a.ContentType, a.SizeBytes, a.DeletionMark, a.CreatedAt)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert attachments: %w", err)
	}

	if _, err := r.Querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert attachments: %w", err)
	}

	return nil
}

// SetAttachmentsDeletionMark marks or unmarks all attachments of a movement.
func (r *StockMovementRepo) SetAttachmentsDeletionMark(ctx context.Context, movementID id.ID, marked bool) error {
	q := r.Builder().
		Update(stockAttachmentTable).
		Set("deletion_mark", marked).
		Where(squirrel.Eq{"movement_id": movementID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update attachments: %w", err)
	}

	if _, err := r.Querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("set attachments deletion mark: %w", err)
	}

	return nil
}
