package stock

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"tally/internal/core/apperror"
	appctx "tally/internal/core/context"
	"tally/internal/core/id"
	"tally/internal/core/tx"
	"tally/internal/core/types"
	"tally/internal/domain"
	"tally/internal/domain/catalogs/product"
	"tally/pkg/logger"
	"tally/pkg/numerator"
)

var tracer = otel.Tracer("tally/stock")

// NumberPrefix is the numerator prefix for movement numbers.
const NumberPrefix = "SM"

// Service maintains the stock ledger and the denormalized
// product.stock_quantity. Every mutation runs in a transaction and locks
// the affected product rows, so concurrent movements cannot lose updates.
type Service struct {
	repo      Repository
	products  product.Repository
	numerator numerator.Generator
	txManager tx.Manager
}

// NewService creates a stock service.
func NewService(repo Repository, products product.Repository, gen numerator.Generator, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		numerator: gen,
		txManager: txManager,
	}
}

// Create validates a movement, inserts it, and applies its delta to the
// product's stock in one transaction.
func (s *Service) Create(ctx context.Context, m *Movement) error {
	ctx, span := tracer.Start(ctx, "StockService.Create",
		trace.WithAttributes(attribute.String("product.id", m.ProductID.String())))
	defer span.End()

	m.Normalize()
	if err := m.Validate(ctx); err != nil {
		return err
	}
	m.SetCreatedBy(appctx.GetUserID(ctx))

	if m.Number == "" {
		cfg := numerator.DefaultConfig(NumberPrefix)
		number, err := s.numerator.GetNextNumber(ctx, cfg, &numerator.Options{Strategy: numerator.StrategyCached}, time.Now())
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		m.Number = number
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.lockProduct(ctx, m.ProductID); err != nil {
			return err
		}

		if err := s.repo.Create(ctx, m); err != nil {
			return fmt.Errorf("create movement: %w", err)
		}
		if len(m.Attachments) > 0 {
			if err := s.repo.SaveAttachments(ctx, m.ID, m.Attachments); err != nil {
				return fmt.Errorf("save attachments: %w", err)
			}
		}

		if err := s.products.AdjustStock(ctx, m.ProductID, m.Quantity); err != nil {
			return fmt.Errorf("adjust stock: %w", err)
		}

		logger.Info(ctx, "stock movement created",
			"id", m.ID, "number", m.Number,
			"product", m.ProductID, "delta", m.Quantity)
		return nil
	})
}

// UpdateInput carries the editable fields of a movement.
type UpdateInput struct {
	ProductID *id.ID
	Type      *MovementType
	Quantity  *types.Quantity
	Reference *string
	Reason    *string
	Date      *time.Time
	Comment   *string
	UnitCost  *types.Money
}

// Update edits a movement in two discrete steps: the previous delta is
// reversed against the movement's old product, then the new delta is
// applied to the (possibly different) new product. Both products are
// locked for the duration of the transaction.
func (s *Service) Update(ctx context.Context, movementID id.ID, in UpdateInput) (*Movement, error) {
	ctx, span := tracer.Start(ctx, "StockService.Update",
		trace.WithAttributes(attribute.String("movement.id", movementID.String())))
	defer span.End()

	var updated *Movement

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		m, err := s.repo.GetForUpdate(ctx, movementID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("stock_movement", movementID.String())
			}
			return err
		}
		if m.IsDeleted() {
			return apperror.NewBusinessRule("MOVEMENT_DELETED",
				"deleted movements cannot be edited; restore first")
		}

		oldProductID := m.ProductID
		oldDelta := m.Quantity

		if in.ProductID != nil {
			m.ProductID = *in.ProductID
		}
		if in.Type != nil {
			m.Type = *in.Type
		}
		if in.Quantity != nil {
			m.Quantity = *in.Quantity
		}
		if in.Reference != nil {
			m.Reference = in.Reference
		}
		if in.Reason != nil {
			m.Reason = in.Reason
		}
		if in.Date != nil {
			m.Date = *in.Date
		}
		if in.Comment != nil {
			m.Comment = *in.Comment
		}
		if in.UnitCost != nil {
			m.UnitCost = in.UnitCost
		}
		m.Normalize()
		m.SetUpdatedBy(appctx.GetUserID(ctx))

		if err := m.Validate(ctx); err != nil {
			return err
		}

		// Lock in a stable order to avoid deadlocks between concurrent edits.
		if err := s.lockPair(ctx, oldProductID, m.ProductID); err != nil {
			return err
		}

		// Step 1: reverse the old delta on the old product.
		if err := s.products.AdjustStock(ctx, oldProductID, oldDelta.Neg()); err != nil {
			return fmt.Errorf("reverse old delta: %w", err)
		}
		// Step 2: apply the new delta on the (possibly new) product.
		if err := s.products.AdjustStock(ctx, m.ProductID, m.Quantity); err != nil {
			return fmt.Errorf("apply new delta: %w", err)
		}

		if err := s.repo.Update(ctx, m); err != nil {
			return fmt.Errorf("update movement: %w", err)
		}

		logger.Info(ctx, "stock movement updated",
			"id", m.ID,
			"old_product", oldProductID, "old_delta", oldDelta,
			"product", m.ProductID, "delta", m.Quantity)
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SoftDelete reverses the movement's delta and marks it deleted.
// Attachment rows are marked together with the movement.
func (s *Service) SoftDelete(ctx context.Context, movementID id.ID) error {
	ctx, span := tracer.Start(ctx, "StockService.SoftDelete",
		trace.WithAttributes(attribute.String("movement.id", movementID.String())))
	defer span.End()

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		m, err := s.repo.GetForUpdate(ctx, movementID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("stock_movement", movementID.String())
			}
			return err
		}
		if m.IsDeleted() {
			return nil // already deleted, nothing to reverse
		}

		if err := s.lockProduct(ctx, m.ProductID); err != nil {
			return err
		}
		if err := s.products.AdjustStock(ctx, m.ProductID, m.Quantity.Neg()); err != nil {
			return fmt.Errorf("reverse delta: %w", err)
		}

		if err := s.repo.SetDeletionMark(ctx, movementID, true); err != nil {
			return fmt.Errorf("mark deleted: %w", err)
		}
		if err := s.repo.SetAttachmentsDeletionMark(ctx, movementID, true); err != nil {
			return fmt.Errorf("mark attachments deleted: %w", err)
		}

		logger.Info(ctx, "stock movement deleted", "id", m.ID, "reversed", m.Quantity.Neg())
		return nil
	})
}

// Restore clears the deletion mark and re-applies the delta. Attachment
// rows are restored alongside.
func (s *Service) Restore(ctx context.Context, movementID id.ID) error {
	ctx, span := tracer.Start(ctx, "StockService.Restore",
		trace.WithAttributes(attribute.String("movement.id", movementID.String())))
	defer span.End()

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		m, err := s.repo.GetForUpdate(ctx, movementID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("stock_movement", movementID.String())
			}
			return err
		}
		if !m.IsDeleted() {
			return nil // already active, nothing to re-apply
		}

		if err := s.lockProduct(ctx, m.ProductID); err != nil {
			return err
		}
		if err := s.products.AdjustStock(ctx, m.ProductID, m.Quantity); err != nil {
			return fmt.Errorf("re-apply delta: %w", err)
		}

		if err := s.repo.SetDeletionMark(ctx, movementID, false); err != nil {
			return fmt.Errorf("clear deletion mark: %w", err)
		}
		if err := s.repo.SetAttachmentsDeletionMark(ctx, movementID, false); err != nil {
			return fmt.Errorf("restore attachments: %w", err)
		}

		logger.Info(ctx, "stock movement restored", "id", m.ID, "applied", m.Quantity)
		return nil
	})
}

// ForceDelete physically removes a movement and its attachment rows.
// The movement must already be soft-deleted, so its delta has been
// reversed and no stock adjustment happens here.
func (s *Service) ForceDelete(ctx context.Context, movementID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		m, err := s.repo.GetForUpdate(ctx, movementID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("stock_movement", movementID.String())
			}
			return err
		}
		if !m.IsDeleted() {
			return apperror.NewBusinessRule("MOVEMENT_NOT_DELETED",
				"movement must be soft-deleted before permanent removal")
		}

		if err := s.repo.HardDelete(ctx, movementID); err != nil {
			return fmt.Errorf("hard delete: %w", err)
		}

		logger.Info(ctx, "stock movement permanently removed", "id", movementID)
		return nil
	})
}

// GetByID retrieves a movement with attachment metadata.
func (s *Service) GetByID(ctx context.Context, movementID id.ID) (*Movement, error) {
	m, err := s.repo.GetByID(ctx, movementID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("stock_movement", movementID.String())
		}
		return nil, err
	}
	attachments, err := s.repo.GetAttachments(ctx, movementID)
	if err != nil {
		return nil, fmt.Errorf("get attachments: %w", err)
	}
	m.Attachments = attachments
	return m, nil
}

// List retrieves movements with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Movement], error) {
	return s.repo.List(ctx, filter)
}

// lockProduct takes the product row lock that serializes stock mutations.
func (s *Service) lockProduct(ctx context.Context, productID id.ID) error {
	if _, err := s.products.GetForUpdate(ctx, productID); err != nil {
		if apperror.IsNotFound(err) {
			return apperror.NewNotFound("product", productID.String())
		}
		return err
	}
	return nil
}

// lockPair locks one or two products in ID order.
func (s *Service) lockPair(ctx context.Context, a, b id.ID) error {
	if a == b {
		return s.lockProduct(ctx, a)
	}
	first, second := a, b
	if second.String() < first.String() {
		first, second = second, first
	}
	if err := s.lockProduct(ctx, first); err != nil {
		return err
	}
	return s.lockProduct(ctx, second)
}
