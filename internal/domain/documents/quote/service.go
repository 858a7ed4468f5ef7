package quote

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

// NumberPrefix is the numerator prefix for quote numbers.
const NumberPrefix = "QT"

// Service provides business operations for quote documents.
type Service struct {
	repo        Repository
	history     documents.HistoryRepository
	snapshotter *documents.Snapshotter
	numerator   numerator.Generator
	txManager   tx.Manager
	hooks       *domain.HookRegistry[*Quote]
}

// NewService creates a new quote service.
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
		hooks:       domain.NewHookRegistry[*Quote](),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*Quote] {
	return s.hooks
}

// CreateInput carries the fields needed to create a quote.
type CreateInput struct {
	ClientID   id.ID
	CurrencyID id.ID
	Date       *time.Time
	ValidUntil *time.Time
	Comment    string
	Lines      []documents.LineInput
}

// Create builds a draft quote with snapshot lines and persists it.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Quote, error) {
	doc := New(in.ClientID, in.CurrencyID)
	doc.Comment = in.Comment
	if in.Date != nil {
		doc.Date = *in.Date
		doc.ValidUntil = in.Date.AddDate(0, 0, DefaultValidityDays)
	}
	if in.ValidUntil != nil {
		doc.ValidUntil = *in.ValidUntil
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
		number, err := s.numerator.GetNextNumber(ctx, cfg, &numerator.Options{Strategy: numerator.StrategyCached}, time.Now())
		if err != nil {
			return nil, fmt.Errorf("generate number: %w", err)
		}
		doc.Number = number
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create quote: %w", err)
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

	logger.Info(ctx, "quote created", "id", doc.ID, "number", doc.Number)
	return doc, nil
}

// GetByID retrieves a quote with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*Quote, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("quote", docID.String())
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

// UpdateInput carries the editable fields of a draft quote.
type UpdateInput struct {
	ValidUntil *time.Time
	Comment    *string

	// Lines, when present, wholesale-replaces the table part with fresh
	// snapshots from current product data.
	Lines []documents.LineInput
}

// Update modifies a draft quote. Non-draft quotes are locked.
func (s *Service) Update(ctx context.Context, docID id.ID, in UpdateInput) (*Quote, error) {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	if !doc.CanEdit() {
		return nil, apperror.NewDocumentLocked(documents.TypeQuote, doc.Status)
	}

	if in.ValidUntil != nil {
		doc.ValidUntil = *in.ValidUntil
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
			return fmt.Errorf("update quote: %w", err)
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

// Delete soft-deletes a quote. Only drafts and rejected quotes qualify.
func (s *Service) Delete(ctx context.Context, docID id.ID) error {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return err
	}

	if !doc.CanDelete() {
		return apperror.NewBusinessRule("QUOTE_NOT_DELETABLE",
			"only draft or rejected quotes can be deleted").
			WithDetail("status", doc.Status)
	}

	if err := s.hooks.RunBeforeDelete(ctx, doc); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, docID); err != nil {
		return err
	}
	if err := s.hooks.RunAfterDelete(ctx, doc); err != nil {
		logger.Warn(ctx, "after-delete hook failed", "error", err)
	}
	return nil
}

// List retrieves quotes with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Quote], error) {
	return s.repo.List(ctx, filter)
}

// History returns the status transition log for a quote.
func (s *Service) History(ctx context.Context, docID id.ID) ([]entity.StatusHistory, error) {
	return s.history.ListByDocument(ctx, docID)
}

// ChangeStatus validates the transition against the status machine,
// applies it, and appends one history row, all in one transaction.
// Illegal transitions mutate nothing and write no history.
func (s *Service) ChangeStatus(ctx context.Context, docID id.ID, target, comment string) (*Quote, error) {
	var doc *Quote

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("quote", docID.String())
			}
			return err
		}

		if !Transitions.Allowed(doc.Status, target) {
			return apperror.NewInvalidTransition(documents.TypeQuote, doc.Status, target)
		}

		from := doc.Status
		doc.Status = target
		doc.SetUpdatedBy(appctx.GetUserID(ctx))
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update quote: %w", err)
		}

		row := entity.NewStatusHistory(doc.ID, documents.TypeQuote, from, target, comment, appctx.GetUserID(ctx))
		if err := s.history.Append(ctx, row); err != nil {
			return fmt.Errorf("append history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "quote status changed", "id", doc.ID, "status", doc.Status)
	return doc, nil
}

// MarkExpired transitions a sent or viewed quote to expired once its
// validity window has lapsed.
func (s *Service) MarkExpired(ctx context.Context, docID id.ID) (*Quote, error) {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if !doc.IsPastValidity(time.Now().UTC()) {
		return nil, apperror.NewBusinessRule("QUOTE_STILL_VALID",
			"quote validity window has not lapsed").
			WithDetail("validUntil", doc.ValidUntil)
	}
	return s.ChangeStatus(ctx, docID, StatusExpired, "validity window lapsed")
}

// Duplicate creates a fresh draft copy: new number, quote date today,
// validity reset, snapshots carried over verbatim.
func (s *Service) Duplicate(ctx context.Context, docID id.ID) (*Quote, error) {
	src, err := s.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	dup := New(src.ClientID, src.CurrencyID)
	dup.Comment = src.Comment
	dup.SetCreatedBy(appctx.GetUserID(ctx))

	lines := make([]documents.SnapshotLine, 0, len(src.Lines))
	for i, line := range src.Lines {
		copied := line.Clone()
		copied.LineNo = i + 1
		lines = append(lines, copied)
	}
	dup.SetLines(lines)

	cfg := numerator.DefaultConfig(NumberPrefix)
	number, err := s.numerator.GetNextNumber(ctx, cfg, &numerator.Options{Strategy: numerator.StrategyCached}, time.Now())
	if err != nil {
		return nil, fmt.Errorf("generate number: %w", err)
	}
	dup.Number = number

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, dup); err != nil {
			return fmt.Errorf("create quote: %w", err)
		}
		if err := s.repo.SaveLines(ctx, dup.ID, dup.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "quote duplicated", "source", src.ID, "id", dup.ID, "number", dup.Number)
	return dup, nil
}
