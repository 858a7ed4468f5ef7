package taxrate

import (
	"context"

	"tally/internal/domain"
)

// Repository defines the interface for TaxRate persistence.
type Repository interface {
	domain.CatalogRepository[*TaxRate]

	// ClearDefault clears the default flag on all rates.
	ClearDefault(ctx context.Context) error
}
