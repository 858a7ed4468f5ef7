// Package category provides the product Category catalog: a
// self-referencing tree used to group products.
package category

import (
	"context"

	"tally/internal/core/apperror"
	"tally/internal/core/entity"
)

// Category is one node in the product category tree.
type Category struct {
	entity.Catalog

	// Description is an optional long description
	Description *string `db:"description" json:"description,omitempty"`

	// SortOrder controls display ordering among siblings
	SortOrder int `db:"sort_order" json:"sortOrder"`
}

// NewCategory creates a new Category with required fields.
func NewCategory(code, name string) *Category {
	return &Category{
		Catalog: entity.NewCatalog(code, name),
	}
}

// Validate implements entity.Validatable.
func (c *Category) Validate(ctx context.Context) error {
	if err := c.Catalog.Validate(ctx); err != nil {
		return err
	}

	// A node can never be its own parent; deeper cycles are checked by the
	// service against the ancestor chain.
	if c.ParentID != nil && *c.ParentID == c.ID.String() {
		return apperror.NewValidation("category cannot be its own parent").
			WithDetail("field", "parentId")
	}

	return nil
}
