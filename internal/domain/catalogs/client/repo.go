package client

import (
	"context"

	"tally/internal/domain"
)

// Repository defines the interface for Client persistence.
type Repository interface {
	domain.CatalogRepository[*Client]

	// FindByTaxNumber retrieves a client by tax number.
	FindByTaxNumber(ctx context.Context, taxNumber string) (*Client, error)
}
