// Package product provides the Product catalog.
package product

import (
	"context"

	"tally/internal/core/apperror"
	"tally/internal/core/entity"
	"tally/internal/core/types"
)

// Product represents a sellable item or service.
type Product struct {
	entity.Catalog

	// SKU is the stock keeping unit (unique when set)
	SKU *string `db:"sku" json:"sku,omitempty"`

	// CategoryID references the category tree
	CategoryID *string `db:"category_id" json:"categoryId,omitempty"`

	// UnitPrice is the current selling price per unit
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`

	// TaxRateID references the default tax rate applied on document lines
	TaxRateID *string `db:"tax_rate_id" json:"taxRateId,omitempty"`

	// CurrencyID references the pricing currency
	CurrencyID *string `db:"currency_id" json:"currencyId,omitempty"`

	// StockQuantity is the authoritative current stock level.
	// It is mutated only by the stock movement service, inside the same
	// transaction as the movement row, with the product row locked.
	StockQuantity types.Quantity `db:"stock_quantity" json:"stockQuantity"`

	// TrackStock disables ledger bookkeeping for services
	TrackStock bool `db:"track_stock" json:"trackStock"`

	// Description is a detailed description
	Description *string `db:"description" json:"description,omitempty"`

	// Barcode is the item barcode (EAN-13, etc.)
	Barcode *string `db:"barcode" json:"barcode,omitempty"`
}

// NewProduct creates a new Product with required fields.
func NewProduct(code, name string, unitPrice types.Money) *Product {
	return &Product{
		Catalog:    entity.NewCatalog(code, name),
		UnitPrice:  unitPrice,
		TrackStock: true,
	}
}

// Validate implements entity.Validatable.
func (p *Product) Validate(ctx context.Context) error {
	if err := p.Catalog.Validate(ctx); err != nil {
		return err
	}

	if p.UnitPrice.IsNegative() {
		return apperror.NewValidation("unit price cannot be negative").
			WithDetail("field", "unitPrice")
	}

	if p.SKU != nil && len(*p.SKU) > 64 {
		return apperror.NewValidation("SKU must be at most 64 characters").
			WithDetail("field", "sku")
	}

	return nil
}

// ApplyStockDelta adjusts the denormalized stock level.
func (p *Product) ApplyStockDelta(delta types.Quantity) {
	p.StockQuantity += delta
}
