package stock

import (
	"context"
	"fmt"
	"time"

	"tally/internal/core/id"
	"tally/internal/core/types"
	"tally/internal/domain"
	"tally/internal/domain/catalogs/product"
	"tally/pkg/logger"
)

// ReconciliationRow compares a product's denormalized stock level with
// the sum of its non-deleted ledger movements.
type ReconciliationRow struct {
	ProductID     id.ID          `json:"productId"`
	ProductName   string         `json:"productName"`
	SKU           *string        `json:"sku,omitempty"`
	StockQuantity types.Quantity `json:"stockQuantity"`
	LedgerTotal   types.Quantity `json:"ledgerTotal"`
	Difference    types.Quantity `json:"difference"`
}

// InSync reports whether the cached level matches the ledger.
func (r ReconciliationRow) InSync() bool {
	return r.Difference.IsZero()
}

// ReconciliationReport is the full comparison across products.
type ReconciliationReport struct {
	GeneratedAt time.Time           `json:"generatedAt"`
	Rows        []ReconciliationRow `json:"rows"`
	OutOfSync   int                 `json:"outOfSync"`
}

// Reconcile builds the report for the given products (all when empty).
// A non-zero difference means a bug or out-of-band data change; the
// ledger is authoritative.
func (s *Service) Reconcile(ctx context.Context, productIDs []id.ID) (*ReconciliationReport, error) {
	report := &ReconciliationReport{GeneratedAt: time.Now().UTC()}

	products, err := s.resolveProducts(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	for _, p := range products {
		if !p.TrackStock {
			continue
		}

		ledger, err := s.repo.SumActiveDeltas(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("sum deltas for %s: %w", p.ID, err)
		}

		row := ReconciliationRow{
			ProductID:     p.ID,
			ProductName:   p.Name,
			SKU:           p.SKU,
			StockQuantity: p.StockQuantity,
			LedgerTotal:   ledger,
			Difference:    p.StockQuantity - ledger,
		}
		if !row.InSync() {
			report.OutOfSync++
			logger.Warn(ctx, "stock out of sync with ledger",
				"product", p.ID, "cached", p.StockQuantity, "ledger", ledger)
		}
		report.Rows = append(report.Rows, row)
	}

	return report, nil
}

// Repair rewrites each out-of-sync product's stock_quantity from the
// ledger, inside a transaction with the product row locked.
func (s *Service) Repair(ctx context.Context, productIDs []id.ID) (*ReconciliationReport, error) {
	report, err := s.Reconcile(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	if report.OutOfSync == 0 {
		return report, nil
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, row := range report.Rows {
			if row.InSync() {
				continue
			}
			if err := s.lockProduct(ctx, row.ProductID); err != nil {
				return err
			}
			// Apply the correcting delta so stock equals the ledger again.
			if err := s.products.AdjustStock(ctx, row.ProductID, row.Difference.Neg()); err != nil {
				return fmt.Errorf("repair %s: %w", row.ProductID, err)
			}
			logger.Info(ctx, "stock repaired from ledger",
				"product", row.ProductID, "correction", row.Difference.Neg())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (s *Service) resolveProducts(ctx context.Context, productIDs []id.ID) ([]*product.Product, error) {
	if len(productIDs) == 0 {
		result, err := s.products.List(ctx, domain.ListFilter{Limit: 10000, OrderBy: "name"})
		if err != nil {
			return nil, fmt.Errorf("list products: %w", err)
		}
		return result.Items, nil
	}

	products := make([]*product.Product, 0, len(productIDs))
	for _, pid := range productIDs {
		p, err := s.products.GetByID(ctx, pid)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}
