package product

import (
	"context"

	"tally/internal/core/id"
	"tally/internal/core/types"
	"tally/internal/domain"
)

// Repository defines the interface for Product persistence.
type Repository interface {
	domain.CatalogRepository[*Product]

	// FindBySKU retrieves a product by SKU.
	FindBySKU(ctx context.Context, sku string) (*Product, error)

	// GetForUpdate retrieves a product with a row lock. Must be called
	// inside a transaction; stock mutations go through this.
	GetForUpdate(ctx context.Context, id id.ID) (*Product, error)

	// AdjustStock applies a delta to stock_quantity of a locked row.
	AdjustStock(ctx context.Context, id id.ID, delta types.Quantity) error
}
