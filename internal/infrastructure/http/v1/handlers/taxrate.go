package handlers

import (
	"tally/internal/core/security"
	"tally/internal/domain/catalogs/taxrate"
	"tally/internal/infrastructure/http/v1/dto"
)

// TaxRateHandler handles tax rate catalog endpoints.
type TaxRateHandler = CatalogHandler[*taxrate.TaxRate, dto.CreateTaxRateRequest, dto.UpdateTaxRateRequest]

// NewTaxRateHandler creates a handler for the tax rate catalog.
func NewTaxRateHandler(base *BaseHandler, service *taxrate.Service, authz *security.Authorizer) *TaxRateHandler {
	return NewCatalogHandler(base, CatalogHandlerConfig[*taxrate.TaxRate, dto.CreateTaxRateRequest, dto.UpdateTaxRateRequest]{
		Service:    service,
		EntityName: "tax rate",
		Resource:   security.ResourceTaxRate,
		Authorizer: authz,
		MapCreateDTO: func(req dto.CreateTaxRateRequest) *taxrate.TaxRate {
			return req.ToEntity()
		},
		MapUpdateDTO: func(req dto.UpdateTaxRateRequest, existing *taxrate.TaxRate) *taxrate.TaxRate {
			req.ApplyTo(existing)
			return existing
		},
		MapToDTO: func(t *taxrate.TaxRate) any {
			return t
		},
	})
}
