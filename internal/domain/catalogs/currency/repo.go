package currency

import (
	"context"

	"tally/internal/domain"
)

// Repository defines the interface for Currency persistence.
type Repository interface {
	domain.CatalogRepository[*Currency]

	// FindByISOCode retrieves currency by ISO code.
	FindByISOCode(ctx context.Context, isoCode string) (*Currency, error)

	// ClearBase clears the base flag on all currencies (before setting a new base).
	ClearBase(ctx context.Context) error
}
