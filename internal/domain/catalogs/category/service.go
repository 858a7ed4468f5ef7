package category

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

// Service provides business logic for the Category catalog,
// including cycle prevention on parent reassignment.
type Service struct {
	*domain.CatalogService[*Category]
	repo      Repository
	numerator numerator.Generator
}

// NewService creates a new Category service.
func NewService(repo Repository, txManager tx.Manager, gen numerator.Generator) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Category]{
		Repo:       repo,
		TxManager:  txManager,
		Numerator:  gen,
		EntityName: "category",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      gen,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)
	base.Hooks().OnBeforeUpdate(svc.checkNoCycle)

	return svc
}

func (s *Service) prepareForCreate(ctx context.Context, c *Category) error {
	if c.Code == "" {
		cfg := numerator.DefaultConfig("CAT")
		code, err := s.numerator.GetNextNumber(ctx, cfg, nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		c.Code = code
	}
	return s.checkNoCycle(ctx, c)
}

// checkNoCycle rejects a parent assignment that would create a loop:
// the candidate parent must not be the category itself, nor have the
// category anywhere in its ancestor chain.
func (s *Service) checkNoCycle(ctx context.Context, c *Category) error {
	if c.ParentID == nil || *c.ParentID == "" {
		return nil
	}

	if *c.ParentID == c.ID.String() {
		return apperror.NewValidation("category cannot be its own parent").
			WithDetail("field", "parentId")
	}

	parentID, err := id.Parse(*c.ParentID)
	if err != nil {
		return apperror.NewValidation("invalid parent id").
			WithDetail("field", "parentId").
			WithDetail("value", *c.ParentID)
	}

	// Walk the candidate parent's ancestor chain root-to-leaf.
	path, err := s.repo.GetPath(ctx, parentID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return apperror.NewNotFound("category", *c.ParentID)
		}
		return err
	}
	for _, ancestor := range path {
		if ancestor.ID == c.ID {
			return apperror.NewBusinessRule("CATEGORY_CYCLE",
				"parent reassignment would create a cycle").
				WithDetail("categoryId", c.ID.String()).
				WithDetail("parentId", *c.ParentID)
		}
	}
	return nil
}

// Tree returns the hierarchical projection rooted at rootID (nil = whole tree).
func (s *Service) Tree(ctx context.Context, rootID *id.ID) ([]*Category, error) {
	return s.repo.GetTree(ctx, rootID)
}

// Flat returns the flat listing with pagination.
func (s *Service) Flat(ctx context.Context, f domain.ListFilter) (domain.ListResult[*Category], error) {
	return s.repo.List(ctx, f)
}
