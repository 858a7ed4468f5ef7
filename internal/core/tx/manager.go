// Package tx defines transaction management interfaces so domain services
// never depend on a concrete database implementation.
package tx

import (
	"context"
)

// Manager runs functions inside database transactions.
// The postgres implementation lives in infrastructure/storage/postgres.
type Manager interface {
	// RunInTransaction executes fn within a transaction, committing on
	// success and rolling back on error. Nested calls reuse the
	// transaction already carried by ctx (via savepoints).
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager extends Manager with read-only transactions for queries
// that never modify data.
type ReadOnlyManager interface {
	Manager

	// ReadOnly executes fn in a read-only transaction.
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

