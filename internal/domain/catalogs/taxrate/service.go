package taxrate

import (
	"context"
	"fmt"
	"time"

	"tally/internal/core/apperror"
	"tally/internal/core/tx"
	"tally/internal/domain"
	"tally/pkg/numerator"
)

// Service provides business logic for the TaxRate catalog.
type Service struct {
	*domain.CatalogService[*TaxRate]
	repo      Repository
	numerator numerator.Generator
}

// NewService creates a new TaxRate service.
func NewService(repo Repository, txManager tx.Manager, gen numerator.Generator) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*TaxRate]{
		Repo:       repo,
		TxManager:  txManager,
		Numerator:  gen,
		EntityName: "tax_rate",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      gen,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForSave)
	base.Hooks().OnBeforeUpdate(svc.prepareForSave)
	base.Hooks().OnBeforeDelete(svc.validateBeforeDelete)

	return svc
}

func (s *Service) prepareForSave(ctx context.Context, t *TaxRate) error {
	if t.Code == "" {
		cfg := numerator.DefaultConfig("TAX")
		code, err := s.numerator.GetNextNumber(ctx, cfg, nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		t.Code = code
	}

	if t.IsDefault {
		if err := s.repo.ClearDefault(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) validateBeforeDelete(ctx context.Context, t *TaxRate) error {
	if t.IsDefault {
		return apperror.NewValidation("cannot delete the default tax rate")
	}
	return nil
}
