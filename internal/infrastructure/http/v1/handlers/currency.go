package handlers

import (
	"tally/internal/core/security"
	"tally/internal/domain/catalogs/currency"
	"tally/internal/infrastructure/http/v1/dto"
)

// CurrencyHandler handles currency catalog endpoints.
type CurrencyHandler = CatalogHandler[*currency.Currency, dto.CreateCurrencyRequest, dto.UpdateCurrencyRequest]

// NewCurrencyHandler creates a handler for the currency catalog.
func NewCurrencyHandler(base *BaseHandler, service *currency.Service, authz *security.Authorizer) *CurrencyHandler {
	return NewCatalogHandler(base, CatalogHandlerConfig[*currency.Currency, dto.CreateCurrencyRequest, dto.UpdateCurrencyRequest]{
		Service:    service,
		EntityName: "currency",
		Resource:   security.ResourceCurrency,
		Authorizer: authz,
		MapCreateDTO: func(req dto.CreateCurrencyRequest) *currency.Currency {
			return req.ToEntity()
		},
		MapUpdateDTO: func(req dto.UpdateCurrencyRequest, existing *currency.Currency) *currency.Currency {
			req.ApplyTo(existing)
			return existing
		},
		MapToDTO: func(c *currency.Currency) any {
			return c
		},
	})
}
