package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// CopyInto bulk-inserts rows into a table over the COPY protocol. It
// must run inside a transaction so a partial COPY rolls back with the
// rest of the work. Worth it from a few dozen rows up; below that a
// multi-value INSERT is cheaper.
func CopyInto(ctx context.Context, txm *TxManager, table string, columns []string, rows [][]any) (int64, error) {
	open := txm.GetTx(ctx)
	if open == nil {
		return 0, fmt.Errorf("CopyInto requires a transaction")
	}
	n, err := open.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", table, err)
	}
	return n, nil
}
