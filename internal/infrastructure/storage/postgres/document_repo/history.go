package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tally/internal/core/entity"
	"tally/internal/core/id"
	"tally/internal/infrastructure/storage/postgres"
)

const statusHistoryTable = "doc_status_history"

// StatusHistoryRepo implements documents.HistoryRepository.
// Rows are append-only: no update or delete statements exist here.
type StatusHistoryRepo struct {
	txm *postgres.TxManager
}

// NewStatusHistoryRepo creates a new status history repository.
func NewStatusHistoryRepo(txm *postgres.TxManager) *StatusHistoryRepo {
	return &StatusHistoryRepo{txm: txm}
}

func (r *StatusHistoryRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Append records a status transition.
func (r *StatusHistoryRepo) Append(ctx context.Context, row entity.StatusHistory) error {
	q := r.builder().
		Insert(statusHistoryTable).
		Columns("id", "document_id", "document_type", "from_status", "to_status", "comment", "user_id", "created_at").
		Values(row.ID, row.DocumentID, row.DocumentType, row.FromStatus, row.ToStatus, row.Comment, row.UserID, row.CreatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("append status history: %w", err)
	}

	return nil
}

// ListByDocument returns the transition history of a document, oldest first.
func (r *StatusHistoryRepo) ListByDocument(ctx context.Context, documentID id.ID) ([]entity.StatusHistory, error) {
	q := r.builder().
		Select("id", "document_id", "document_type", "from_status", "to_status", "comment", "user_id", "created_at").
		From(statusHistoryTable).
		Where(squirrel.Eq{"document_id": documentID}).
		OrderBy("created_at ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []entity.StatusHistory
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}

	return rows, nil
}
