package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"tally/internal/domain/catalogs/taxrate"
	"tally/internal/infrastructure/storage/postgres"
)

const taxRateTable = "cat_tax_rates"

// TaxRateRepo implements taxrate.Repository.
type TaxRateRepo struct {
	*BaseCatalogRepo[*taxrate.TaxRate]
}

// NewTaxRateRepo creates a new tax rate repository.
func NewTaxRateRepo(txm *postgres.TxManager) *TaxRateRepo {
	return &TaxRateRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txm,
			taxRateTable,
			postgres.ExtractDBColumns[taxrate.TaxRate](),
			func() *taxrate.TaxRate { return &taxrate.TaxRate{} },
		),
	}
}

// ClearDefault clears the default flag on all tax rates.
func (r *TaxRateRepo) ClearDefault(ctx context.Context) error {
	q := r.Builder().
		Update(taxRateTable).
		Set("is_default", false).
		Where(squirrel.Eq{"is_default": true})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := r.Querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("clear default: %w", err)
	}

	return nil
}
