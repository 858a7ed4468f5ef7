package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tally/internal/core/id"
	"tally/internal/domain/documents"
	"tally/internal/infrastructure/storage/postgres"
)

// lineStore persists snapshot lines for a document table.
// Lines are replaced wholesale: document services rebuild the full line
// set on every edit, so partial updates are never needed.
type lineStore struct {
	txm       *postgres.TxManager
	tableName string
	docColumn string
}

// copyThreshold is the line count from which SaveLines switches to the
// COPY protocol.
const copyThreshold = 50

func newLineStore(txm *postgres.TxManager, tableName string) *lineStore {
	return &lineStore{
		txm:       txm,
		tableName: tableName,
		docColumn: "document_id",
	}
}

func lineColumns(docColumn string) []string {
	return []string{
		"line_id", docColumn, "line_no", "product_id", "product_name", "sku",
		"quantity", "unit_price", "tax_rate_percent", "line_total", "tax_amount",
	}
}

func (s *lineStore) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// GetLines returns the lines of a document ordered by line number.
func (s *lineStore) GetLines(ctx context.Context, docID id.ID) ([]documents.SnapshotLine, error) {
	q := s.builder().
		Select("line_id", "line_no", "product_id", "product_name", "sku",
			"quantity", "unit_price", "tax_rate_percent", "line_total", "tax_amount").
		From(s.tableName).
		Where(squirrel.Eq{s.docColumn: docID}).
		OrderBy("line_no ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []documents.SnapshotLine
	if err := pgxscan.Select(ctx, s.txm.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines %s: %w", s.tableName, err)
	}

	return lines, nil
}

// SaveLines replaces all lines of a document. Must run inside a transaction.
func (s *lineStore) SaveLines(ctx context.Context, docID id.ID, lines []documents.SnapshotLine) error {
	delQ := s.builder().
		Delete(s.tableName).
		Where(squirrel.Eq{s.docColumn: docID})

	delSQL, delArgs, err := delQ.ToSql()
	if err != nil {
		return fmt.Errorf("build delete lines: %w", err)
	}

	querier := s.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, delSQL, delArgs...); err != nil {
		return fmt.Errorf("delete lines %s: %w", s.tableName, err)
	}

	if len(lines) == 0 {
		return nil
	}

	// Large documents go over COPY; the usual short line sets use a
	// single multi-value INSERT.
	if len(lines) >= copyThreshold {
		rows := make([][]any, 0, len(lines))
		for _, line := range lines {
			rows = append(rows, []any{
				line.LineID, docID, line.LineNo, line.ProductID, line.ProductName, line.SKU,
				line.Quantity, line.UnitPrice, line.TaxRatePercent, line.LineTotal, line.TaxAmount,
			})
		}
		if _, err := postgres.CopyInto(ctx, s.txm, s.tableName, lineColumns(s.docColumn), rows); err != nil {
			return fmt.Errorf("copy lines %s: %w", s.tableName, err)
		}
		return nil
	}

	insQ := s.builder().
		Insert(s.tableName).
		Columns("line_id", s.docColumn, "line_no", "product_id", "product_name", "sku",
			"quantity", "unit_price", "tax_rate_percent", "line_total", "tax_amount")

	for _, line := range lines {
		insQ = insQ.Values(
			line.LineID, docID, line.LineNo, line.ProductID, line.ProductName, line.SKU,
			line.Quantity, line.UnitPrice, line.TaxRatePercent, line.LineTotal, line.TaxAmount,
		)
	}

	insSQL, insArgs, err := insQ.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}

	if _, err := querier.Exec(ctx, insSQL, insArgs...); err != nil {
		return fmt.Errorf("insert lines %s: %w", s.tableName, err)
	}

	return nil
}
