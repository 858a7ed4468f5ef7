package invoice

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

// NumberPrefix is the numerator prefix for invoice numbers.
const NumberPrefix = "INV"

// Service provides business operations for invoice documents.
type Service struct {
	repo        Repository
	history     documents.HistoryRepository
	snapshotter *documents.Snapshotter
	numerator   numerator.Generator
	txManager   tx.Manager
	hooks       *domain.HookRegistry[*Invoice]
}

// NewService creates a new invoice service.
func NewService(
	repo Repository,
	history documents.HistoryRepository,
	snapshotter *documents.Snapshotter,
	gen numerator.Generator,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:        repo,
		history:     history,
		snapshotter: snapshotter,
		numerator:   gen,
		txManager:   txManager,
		hooks:       domain.NewHookRegistry[*Invoice](),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*Invoice] {
	return s.hooks
}

// CreateInput carries the fields needed to create an invoice directly.
type CreateInput struct {
	ClientID   id.ID
	CurrencyID id.ID
	Date       *time.Time
	DueDate    *time.Time
	Comment    string
	Lines      []documents.LineInput
}

// Create builds a draft invoice with snapshot lines and persists it.
// Invoice numbers use the strict strategy: accounting documents must not
// have numbering gaps.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Invoice, error) {
	doc := New(in.ClientID, in.CurrencyID)
	doc.Comment = in.Comment
	if in.Date != nil {
		doc.Date = *in.Date
		doc.DueDate = in.Date.AddDate(0, 0, DefaultDueDays)
	}
	if in.DueDate != nil {
		doc.DueDate = *in.DueDate
	}
	doc.SetCreatedBy(appctx.GetUserID(ctx))

	lines, err := s.snapshotter.BuildLines(ctx, in.Lines)
	if err != nil {
		return nil, err
	}
	doc.SetLines(lines)

	if err := s.hooks.RunBeforeCreate(ctx, doc); err != nil {
		return nil, err
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, err
	}

	if doc.Number == "" {
		cfg := numerator.DefaultConfig(NumberPrefix)
		number, err := s.numerator.GetNextNumber(ctx, cfg, numerator.DefaultOptions(), time.Now())
		if err != nil {
			return nil, fmt.Errorf("generate number: %w", err)
		}
		doc.Number = number
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.hooks.RunAfterCreate(ctx, doc); err != nil {
		logger.Warn(ctx, "after-create hook failed", "error", err)
	}

	logger.Info(ctx, "invoice created", "id", doc.ID, "number", doc.Number)
	return doc, nil
}

// GetByID retrieves an invoice with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*Invoice, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("invoice", docID.String())
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

// UpdateInput carries the editable fields of a draft invoice.
type UpdateInput struct {
	DueDate *time.Time
	Comment *string

	// Lines, when present, wholesale-replaces the table part with fresh
	// snapshots; totals are recomputed from the new lines.
	Lines []documents.LineInput
}

// Update modifies a draft invoice. Non-draft invoices are locked.
func (s *Service) Update(ctx context.Context, docID id.ID, in UpdateInput) (*Invoice, error) {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	if !doc.CanEdit() {
		return nil, apperror.NewDocumentLocked(documents.TypeInvoice, doc.Status)
	}

	if in.DueDate != nil {
		doc.DueDate = *in.DueDate
	}
	if in.Comment != nil {
		doc.Comment = *in.Comment
	}
	if in.Lines != nil {
		lines, err := s.snapshotter.BuildLines(ctx, in.Lines)
		if err != nil {
			return nil, err
		}
		doc.SetLines(lines)
	}
	doc.SetUpdatedBy(appctx.GetUserID(ctx))

	if err := s.hooks.RunBeforeUpdate(ctx, doc); err != nil {
		return nil, err
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}
		if in.Lines != nil {
			if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
				return fmt.Errorf("save lines: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.hooks.RunAfterUpdate(ctx, doc); err != nil {
		logger.Warn(ctx, "after-update hook failed", "error", err)
	}
	return doc, nil
}

// Delete soft-deletes a draft invoice.
func (s *Service) Delete(ctx context.Context, docID id.ID) error {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return err
	}
	if !doc.CanEdit() {
		return apperror.NewBusinessRule("INVOICE_NOT_DELETABLE",
			"only draft invoices can be deleted").
			WithDetail("status", doc.Status)
	}
	return s.repo.Delete(ctx, docID)
}

// List retrieves invoices with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Invoice], error) {
	return s.repo.List(ctx, filter)
}

// History returns the status transition log for an invoice.
func (s *Service) History(ctx context.Context, docID id.ID) ([]entity.StatusHistory, error) {
	return s.history.ListByDocument(ctx, docID)
}

// ChangeStatus validates the transition against the status machine,
// applies it, and appends one history row, all in one transaction.
func (s *Service) ChangeStatus(ctx context.Context, docID id.ID, target, comment string) (*Invoice, error) {
	return s.transition(ctx, docID, comment, func(doc *Invoice, target string) error {
		if !Transitions.Allowed(doc.Status, target) {
			return apperror.NewInvalidTransition(documents.TypeInvoice, doc.Status, target)
		}
		return nil
	}, target)
}

// MarkAsPaid settles an invoice directly. Allowed from sent, issued, or
// partially_paid, and from any overdue, unsettled state.
func (s *Service) MarkAsPaid(ctx context.Context, docID id.ID, comment string) (*Invoice, error) {
	return s.transition(ctx, docID, comment, func(doc *Invoice, _ string) error {
		if !doc.CanMarkPaid(time.Now().UTC()) {
			return apperror.NewInvalidTransition(documents.TypeInvoice, doc.Status, StatusPaid)
		}
		return nil
	}, StatusPaid)
}

// Reopen returns a refunded invoice to draft for correction. This is the
// single deliberate escape from the terminal refunded state.
func (s *Service) Reopen(ctx context.Context, docID id.ID, comment string) (*Invoice, error) {
	return s.transition(ctx, docID, comment, func(doc *Invoice, _ string) error {
		if doc.Status != StatusRefunded {
			return apperror.NewBusinessRule("INVOICE_NOT_REOPENABLE",
				"only refunded invoices can be reopened").
				WithDetail("status", doc.Status)
		}
		return nil
	}, StatusDraft)
}

// transition loads the invoice with a row lock, runs the gate, applies
// the new status, and appends the history row atomically.
func (s *Service) transition(
	ctx context.Context,
	docID id.ID,
	comment string,
	gate func(doc *Invoice, target string) error,
	target string,
) (*Invoice, error) {
	var doc *Invoice

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("invoice", docID.String())
			}
			return err
		}

		if err := gate(doc, target); err != nil {
			return err
		}

		from := doc.Status
		doc.Status = target
		doc.SetUpdatedBy(appctx.GetUserID(ctx))
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}

		row := entity.NewStatusHistory(doc.ID, documents.TypeInvoice, from, target, comment, appctx.GetUserID(ctx))
		if err := s.history.Append(ctx, row); err != nil {
			return fmt.Errorf("append history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "invoice status changed", "id", doc.ID, "status", doc.Status)
	return doc, nil
}
