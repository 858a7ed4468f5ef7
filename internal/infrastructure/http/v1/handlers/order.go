package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tally/internal/core/apperror"
	"tally/internal/core/id"
	"tally/internal/core/security"
	"tally/internal/domain"
	"tally/internal/domain/documents/order"
	"tally/internal/infrastructure/http/v1/dto"
)

// OrderHandler handles order document endpoints. Orders are created
// only by converting an accepted quote, so there is no Create route.
type OrderHandler struct {
	*BaseHandler
	service *order.Service
	authz   *security.Authorizer
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(base *BaseHandler, service *order.Service, authz *security.Authorizer) *OrderHandler {
	return &OrderHandler{
		BaseHandler: base,
		service:     service,
		authz:       authz,
	}
}

// List handles GET /orders.
func (h *OrderHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := order.ListFilter{
		ListFilter: domain.ListFilter{
			Search:  c.Query("search"),
			Limit:   h.ParseIntQuery(c, "limit", 50),
			Offset:  h.ParseIntQuery(c, "offset", 0),
			OrderBy: c.DefaultQuery("orderBy", "-date"),
		},
	}
	if c.Query("includeDeleted") == "true" {
		filter.IncludeDeleted = h.authz.CanViewDeleted(ctx, security.ResourceOrder)
	}
	if clientStr := c.Query("clientId"); clientStr != "" {
		clientID, err := id.Parse(clientStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid clientId format"))
			return
		}
		filter.ClientID = &clientID
	}
	if status := c.Query("status"); status != "" {
		filter.Status = &status
	}
	var ok bool
	if filter.DateFrom, ok = parseTimeQuery(c, "dateFrom"); !ok {
		h.Error(c, apperror.NewValidation("invalid dateFrom format (RFC 3339 expected)"))
		return
	}
	if filter.DateTo, ok = parseTimeQuery(c, "dateTo"); !ok {
		h.Error(c, apperror.NewValidation("invalid dateTo format (RFC 3339 expected)"))
		return
	}

	result, err := h.service.List(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      result.Items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Get handles GET /orders/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// ChangeStatus handles POST /orders/:id/status.
func (h *OrderHandler) ChangeStatus(c *gin.Context) {
	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.ChangeStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.ChangeStatus(c.Request.Context(), docID, req.Status, req.Comment)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CompleteIdempotency(c, http.StatusOK, "application/json", doc)
	c.JSON(http.StatusOK, doc)
}

// History handles GET /orders/:id/history.
func (h *OrderHandler) History(c *gin.Context) {
	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	rows, err := h.service.History(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": rows})
}
