package order

import (
	"context"
	"fmt"
	"time"

	"tally/internal/core/apperror"
	appctx "tally/internal/core/context"
	"tally/internal/core/entity"
	"tally/internal/core/id"
	"tally/internal/core/tx"
	"tally/internal/domain"
	"tally/internal/domain/documents"
	"tally/pkg/logger"
	"tally/pkg/numerator"
)

// NumberPrefix is the numerator prefix for order numbers.
const NumberPrefix = "ORD"

// Service provides business operations for order documents.
// Orders are normally created by the quote converter, not directly.
type Service struct {
	repo      Repository
	history   documents.HistoryRepository
	numerator numerator.Generator
	txManager tx.Manager
}

// NewService creates a new order service.
func NewService(repo Repository, history documents.HistoryRepository, gen numerator.Generator, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		history:   history,
		numerator: gen,
		txManager: txManager,
	}
}

// Create persists an order built by the converter. A number is assigned
// when absent. Must run inside the conversion transaction.
func (s *Service) Create(ctx context.Context, doc *Order) error {
	if err := doc.Validate(ctx); err != nil {
		return err
	}

	if doc.Number == "" {
		cfg := numerator.DefaultConfig(NumberPrefix)
		number, err := s.numerator.GetNextNumber(ctx, cfg, &numerator.Options{Strategy: numerator.StrategyCached}, time.Now())
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		doc.Number = number
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
		return fmt.Errorf("save lines: %w", err)
	}
	return nil
}

// GetByID retrieves an order with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*Order, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("order", docID.String())
		}
		return nil, err
	}

	lines, err := s.repo.GetLines(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	doc.Lines = lines
	return doc, nil
}

// List retrieves orders with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Order], error) {
	return s.repo.List(ctx, filter)
}

// History returns the status transition log for an order.
func (s *Service) History(ctx context.Context, docID id.ID) ([]entity.StatusHistory, error) {
	return s.history.ListByDocument(ctx, docID)
}

// ChangeStatus validates and applies a transition, appending one history row.
func (s *Service) ChangeStatus(ctx context.Context, docID id.ID, target, comment string) (*Order, error) {
	var doc *Order

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("order", docID.String())
			}
			return err
		}

		if !Transitions.Allowed(doc.Status, target) {
			return apperror.NewInvalidTransition(documents.TypeOrder, doc.Status, target)
		}

		from := doc.Status
		doc.Status = target
		doc.SetUpdatedBy(appctx.GetUserID(ctx))
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update order: %w", err)
		}

		row := entity.NewStatusHistory(doc.ID, documents.TypeOrder, from, target, comment, appctx.GetUserID(ctx))
		if err := s.history.Append(ctx, row); err != nil {
			return fmt.Errorf("append history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order status changed", "id", doc.ID, "status", doc.Status)
	return doc, nil
}
