package handlers

import (
	"tally/internal/core/security"
	"tally/internal/domain/catalogs/client"
	"tally/internal/infrastructure/http/v1/dto"
)

// ClientHandler handles client catalog endpoints.
type ClientHandler = CatalogHandler[*client.Client, dto.CreateClientRequest, dto.UpdateClientRequest]

// NewClientHandler creates a handler for the client catalog. Domain
// models carry the API json tags, so responses are the entities
// themselves.
func NewClientHandler(base *BaseHandler, service *client.Service, authz *security.Authorizer) *ClientHandler {
	return NewCatalogHandler(base, CatalogHandlerConfig[*client.Client, dto.CreateClientRequest, dto.UpdateClientRequest]{
		Service:    service,
		EntityName: "client",
		Resource:   security.ResourceClient,
		Authorizer: authz,
		MapCreateDTO: func(req dto.CreateClientRequest) *client.Client {
			return req.ToEntity()
		},
		MapUpdateDTO: func(req dto.UpdateClientRequest, existing *client.Client) *client.Client {
			req.ApplyTo(existing)
			return existing
		},
		MapToDTO: func(c *client.Client) any {
			return c
		},
	})
}
