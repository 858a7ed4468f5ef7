// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"tally/internal/core/security"
	"tally/internal/infrastructure/http/v1/middleware"
)

// CatalogRouteHandler defines the interface for catalog handlers.
// All catalog handlers must implement these methods.
type CatalogRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
	SetDeletionMark(c *gin.Context)
	GetTree(c *gin.Context)
}

// RegisterCatalogRoutes registers standard CRUD routes for a catalog.
// Every route passes through the central authorization matrix; there
// are no inline role checks in the handlers.
func RegisterCatalogRoutes(group *gin.RouterGroup, handler CatalogRouteHandler, authz *security.Authorizer, resource security.Resource) {
	group.GET("", middleware.Authorize(authz, security.ActionRead, resource), handler.List)
	group.POST("", middleware.Authorize(authz, security.ActionCreate, resource), handler.Create)
	group.GET("/:id", middleware.Authorize(authz, security.ActionRead, resource), handler.Get)
	group.PUT("/:id", middleware.Authorize(authz, security.ActionUpdate, resource), handler.Update)
	group.DELETE("/:id", middleware.Authorize(authz, security.ActionDelete, resource), handler.Delete)
	group.POST("/:id/deletion-mark", middleware.Authorize(authz, security.ActionDelete, resource), handler.SetDeletionMark)
	group.GET("/tree", middleware.Authorize(authz, security.ActionRead, resource), handler.GetTree)
}
