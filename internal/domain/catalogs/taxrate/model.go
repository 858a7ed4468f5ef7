// Package taxrate provides the TaxRate catalog.
package taxrate

import (
	"context"

	"github.com/shopspring/decimal"

	"tally/internal/core/apperror"
	"tally/internal/core/entity"
)

// TaxRate represents a named tax percentage applied on document lines.
type TaxRate struct {
	entity.Catalog

	// Rate is the percentage, e.g. 20 for 20%
	Rate decimal.Decimal `db:"rate" json:"rate"`

	// IsDefault marks the rate applied when a product has none
	IsDefault bool `db:"is_default" json:"isDefault"`

	// Description is a free-form note
	Description *string `db:"description" json:"description,omitempty"`
}

// NewTaxRate creates a new TaxRate with required fields.
func NewTaxRate(code, name string, rate decimal.Decimal) *TaxRate {
	return &TaxRate{
		Catalog: entity.NewCatalog(code, name),
		Rate:    rate,
	}
}

// Validate implements entity.Validatable.
func (t *TaxRate) Validate(ctx context.Context) error {
	if err := t.Catalog.Validate(ctx); err != nil {
		return err
	}

	if t.Rate.IsNegative() || t.Rate.GreaterThan(decimal.NewFromInt(100)) {
		return apperror.NewValidation("rate must be between 0 and 100").
			WithDetail("field", "rate").
			WithDetail("value", t.Rate.String())
	}

	return nil
}

// Apply returns the tax amount for the given net amount.
func (t *TaxRate) Apply(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(t.Rate).Div(decimal.NewFromInt(100))
}
