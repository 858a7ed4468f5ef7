package client

import (
	"context"
	"fmt"
	"time"

	"tally/internal/core/apperror"
	"tally/internal/core/id"
	"tally/internal/core/tx"
	"tally/internal/domain"
	"tally/pkg/numerator"
)

// Service provides business logic for the Client catalog.
// Common CRUD is delegated to the embedded domain.CatalogService.
type Service struct {
	*domain.CatalogService[*Client]
	repo      Repository
	numerator numerator.Generator
}

// NewService creates a new Client service.
func NewService(repo Repository, txManager tx.Manager, gen numerator.Generator) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Client]{
		Repo:       repo,
		TxManager:  txManager,
		Numerator:  gen,
		EntityName: "client",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      gen,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)
	base.Hooks().OnBeforeUpdate(svc.checkTaxNumberUnique)

	return svc
}

// prepareForCreate generates a code if absent and checks tax number uniqueness.
func (s *Service) prepareForCreate(ctx context.Context, c *Client) error {
	if c.Code == "" {
		cfg := numerator.DefaultConfig("CL")
		code, err := s.numerator.GetNextNumber(ctx, cfg, nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		c.Code = code
	}
	return s.checkTaxNumberUnique(ctx, c)
}

func (s *Service) checkTaxNumberUnique(ctx context.Context, c *Client) error {
	if c.TaxNumber == nil || *c.TaxNumber == "" {
		return nil
	}
	exists, err := s.taxNumberExists(ctx, *c.TaxNumber, c.ID)
	if err != nil {
		return err
	}
	if exists {
		return apperror.NewConflict("client with this tax number already exists").
			WithDetail("taxNumber", *c.TaxNumber)
	}
	return nil
}

// FindByTaxNumber retrieves a client by tax number.
func (s *Service) FindByTaxNumber(ctx context.Context, taxNumber string) (*Client, error) {
	return s.repo.FindByTaxNumber(ctx, taxNumber)
}

func (s *Service) taxNumberExists(ctx context.Context, taxNumber string, excludeID id.ID) (bool, error) {
	existing, err := s.repo.FindByTaxNumber(ctx, taxNumber)
	if err != nil {
		if apperror.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return existing.ID != excludeID, nil
}
