package category

import (
	"tally/internal/domain"
)

// Repository defines the interface for Category persistence.
// GetTree and GetPath from the base contract drive the tree projection
// and cycle detection.
type Repository interface {
	domain.CatalogRepository[*Category]
}
