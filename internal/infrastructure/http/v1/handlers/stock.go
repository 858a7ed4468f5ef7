package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tally/internal/core/apperror"
	"tally/internal/core/id"
	"tally/internal/core/security"
	"tally/internal/domain"
	"tally/internal/domain/stock"
	"tally/internal/infrastructure/http/v1/dto"
)

// StockHandler handles stock movement ledger endpoints.
type StockHandler struct {
	*BaseHandler
	service *stock.Service
	authz   *security.Authorizer
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service *stock.Service, authz *security.Authorizer) *StockHandler {
	return &StockHandler{
		BaseHandler: base,
		service:     service,
		authz:       authz,
	}
}

// List handles GET /stock/movements.
func (h *StockHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := stock.ListFilter{
		ListFilter: domain.ListFilter{
			Search:  c.Query("search"),
			Limit:   h.ParseIntQuery(c, "limit", 50),
			Offset:  h.ParseIntQuery(c, "offset", 0),
			OrderBy: c.DefaultQuery("orderBy", "-date"),
		},
	}
	if c.Query("includeDeleted") == "true" {
		filter.IncludeDeleted = h.authz.CanViewDeleted(ctx, security.ResourceStockMovement)
	}
	if productStr := c.Query("productId"); productStr != "" {
		productID, err := id.Parse(productStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid productId format"))
			return
		}
		filter.ProductID = &productID
	}
	if typeStr := c.Query("type"); typeStr != "" {
		movType := stock.MovementType(typeStr)
		filter.Type = &movType
	}
	if providerStr := c.Query("providerId"); providerStr != "" {
		providerID, err := id.Parse(providerStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid providerId format"))
			return
		}
		filter.ProviderID = &providerID
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

// Get handles GET /stock/movements/:id.
func (h *StockHandler) Get(c *gin.Context) {
	movementID, ok := h.parseID(c)
	if !ok {
		return
	}

	m, err := h.service.GetByID(c.Request.Context(), movementID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, m)
}

// Create handles POST /stock/movements. The product's stock level is
// adjusted in the same transaction.
func (h *StockHandler) Create(c *gin.Context) {
	var req dto.CreateMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	m, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Create(c.Request.Context(), m); err != nil {
		h.Error(c, err)
		return
	}

	h.CompleteIdempotency(c, http.StatusCreated, "application/json", m)
	c.JSON(http.StatusCreated, m)
}

// Update handles PUT /stock/movements/:id. Edits reverse the old delta
// and apply the new one, possibly against a different product.
func (h *StockHandler) Update(c *gin.Context) {
	movementID, ok := h.parseID(c)
	if !ok {
		return
	}

	var req dto.UpdateMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	m, err := h.service.Update(c.Request.Context(), movementID, in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CompleteIdempotency(c, http.StatusOK, "application/json", m)
	c.JSON(http.StatusOK, m)
}

// Delete handles DELETE /stock/movements/:id - soft delete that
// reverses the movement's contribution to the stock level.
func (h *StockHandler) Delete(c *gin.Context) {
	movementID, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.service.SoftDelete(c.Request.Context(), movementID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// Restore handles POST /stock/movements/:id/restore - undo a soft
// delete and re-apply the delta.
func (h *StockHandler) Restore(c *gin.Context) {
	movementID, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.service.Restore(c.Request.Context(), movementID); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "movement restored")
}

// ForceDelete handles DELETE /stock/movements/:id/force - physical
// removal, admin only.
func (h *StockHandler) ForceDelete(c *gin.Context) {
	movementID, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.service.ForceDelete(c.Request.Context(), movementID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// Reconcile handles POST /stock/reconcile - compare the ledger sum
// against product stock levels without changing anything.
func (h *StockHandler) Reconcile(c *gin.Context) {
	var req dto.ReconcileRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ids, err := req.ToIDs()
	if err != nil {
		h.Error(c, err)
		return
	}

	report, err := h.service.Reconcile(c.Request.Context(), ids)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// Repair handles POST /stock/repair - rewrite drifted product stock
// levels from the ledger.
func (h *StockHandler) Repair(c *gin.Context) {
	var req dto.ReconcileRequest
	if !h.BindJSON(c, &req) {
		return
	}

	ids, err := req.ToIDs()
	if err != nil {
		h.Error(c, err)
		return
	}

	report, err := h.service.Repair(c.Request.Context(), ids)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CompleteIdempotency(c, http.StatusOK, "application/json", report)
	c.JSON(http.StatusOK, report)
}

func (h *StockHandler) parseID(c *gin.Context) (id.ID, bool) {
	movementID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return id.Nil(), false
	}
	return movementID, true
}
