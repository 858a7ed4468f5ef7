package documents

import (
	"context"

	"tally/internal/core/apperror"
	"tally/internal/core/id"
	"tally/internal/core/types"
	"tally/internal/domain/catalogs/product"
	"tally/internal/domain/catalogs/taxrate"
)

// LineInput is the caller-supplied part of a document line.
type LineInput struct {
	ProductID id.ID
	Quantity  types.Quantity

	// UnitPrice overrides the product price when set (negotiated pricing).
	UnitPrice *types.Money

	// TaxRateID overrides the product's default tax rate when set.
	TaxRateID *id.ID
}

// Snapshotter builds snapshot lines by freezing current product data.
type Snapshotter struct {
	products product.Repository
	taxRates taxrate.Repository
}

// NewSnapshotter creates a Snapshotter.
func NewSnapshotter(products product.Repository, taxRates taxrate.Repository) *Snapshotter {
	return &Snapshotter{products: products, taxRates: taxRates}
}

// BuildLines resolves each input against the product catalog and returns
// computed snapshot lines. Quantities must be positive.
func (s *Snapshotter) BuildLines(ctx context.Context, inputs []LineInput) ([]SnapshotLine, error) {
	if len(inputs) == 0 {
		return nil, apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	lines := make([]SnapshotLine, 0, len(inputs))
	for i, in := range inputs {
		if id.IsNil(in.ProductID) {
			return nil, apperror.NewValidation("product is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if !in.Quantity.IsPositive() {
			return nil, apperror.NewValidation("quantity must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}

		p, err := s.products.GetByID(ctx, in.ProductID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return nil, apperror.NewNotFound("product", in.ProductID.String())
			}
			return nil, err
		}

		line := SnapshotLine{
			LineID:      id.New(),
			LineNo:      i + 1,
			ProductID:   p.ID,
			ProductName: p.Name,
			SKU:         p.SKU,
			Quantity:    in.Quantity,
			UnitPrice:   p.UnitPrice,
		}
		if in.UnitPrice != nil {
			line.UnitPrice = *in.UnitPrice
		}

		rate, err := s.resolveTaxRate(ctx, in.TaxRateID, p)
		if err != nil {
			return nil, err
		}
		line.TaxRatePercent = rate

		line.Compute()
		lines = append(lines, line)
	}

	return lines, nil
}

// resolveTaxRate picks the explicit rate, then the product default, then zero.
func (s *Snapshotter) resolveTaxRate(ctx context.Context, explicit *id.ID, p *product.Product) (types.Money, error) {
	rateID := explicit
	if rateID == nil && p.TaxRateID != nil && *p.TaxRateID != "" {
		parsed, err := id.Parse(*p.TaxRateID)
		if err == nil {
			rateID = &parsed
		}
	}
	if rateID == nil {
		return types.Zero(), nil
	}

	rate, err := s.taxRates.GetByID(ctx, *rateID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return types.Zero(), apperror.NewNotFound("tax_rate", rateID.String())
		}
		return types.Zero(), err
	}
	return rate.Rate, nil
}
