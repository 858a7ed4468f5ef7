package handlers

import (
	"tally/internal/core/security"
	"tally/internal/domain/catalogs/category"
	"tally/internal/infrastructure/http/v1/dto"
)

// CategoryHandler handles category catalog endpoints.
type CategoryHandler = CatalogHandler[*category.Category, dto.CreateCategoryRequest, dto.UpdateCategoryRequest]

// NewCategoryHandler creates a handler for the category tree.
func NewCategoryHandler(base *BaseHandler, service *category.Service, authz *security.Authorizer) *CategoryHandler {
	return NewCatalogHandler(base, CatalogHandlerConfig[*category.Category, dto.CreateCategoryRequest, dto.UpdateCategoryRequest]{
		Service:    service,
		EntityName: "category",
		Resource:   security.ResourceCategory,
		Authorizer: authz,
		MapCreateDTO: func(req dto.CreateCategoryRequest) *category.Category {
			return req.ToEntity()
		},
		MapUpdateDTO: func(req dto.UpdateCategoryRequest, existing *category.Category) *category.Category {
			req.ApplyTo(existing)
			return existing
		},
		MapToDTO: func(c *category.Category) any {
			return c
		},
	})
}
