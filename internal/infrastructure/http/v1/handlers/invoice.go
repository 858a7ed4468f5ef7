package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tally/internal/core/apperror"
	"tally/internal/core/id"
	"tally/internal/core/security"
	"tally/internal/domain"
	"tally/internal/domain/documents/invoice"
	"tally/internal/infrastructure/http/v1/dto"
)

// InvoiceHandler handles invoice document endpoints.
type InvoiceHandler struct {
	*BaseHandler
	service *invoice.Service
	authz   *security.Authorizer
}

// NewInvoiceHandler creates a new invoice handler.
func NewInvoiceHandler(base *BaseHandler, service *invoice.Service, authz *security.Authorizer) *InvoiceHandler {
	return &InvoiceHandler{
		BaseHandler: base,
		service:     service,
		authz:       authz,
	}
}

// List handles GET /invoices. overdue=true selects invoices past due
// and not settled.
func (h *InvoiceHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := invoice.ListFilter{
		ListFilter: domain.ListFilter{
			Search:  c.Query("search"),
			Limit:   h.ParseIntQuery(c, "limit", 50),
			Offset:  h.ParseIntQuery(c, "offset", 0),
			OrderBy: c.DefaultQuery("orderBy", "-date"),
		},
	}
	if c.Query("includeDeleted") == "true" {
		filter.IncludeDeleted = h.authz.CanViewDeleted(ctx, security.ResourceInvoice)
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
	if overdue := c.Query("overdue"); overdue != "" {
		val := overdue == "true"
		filter.Overdue = &val
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

// Get handles GET /invoices/:id.
func (h *InvoiceHandler) Get(c *gin.Context) {
	docID, ok := h.parseID(c)
	if !ok {
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// Create handles POST /invoices - direct invoice without a quote.
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req dto.CreateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	doc, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CompleteIdempotency(c, http.StatusCreated, "application/json", doc)
	c.JSON(http.StatusCreated, doc)
}

// Update handles PUT /invoices/:id. Only drafts are editable.
func (h *InvoiceHandler) Update(c *gin.Context) {
	docID, ok := h.parseID(c)
	if !ok {
		return
	}

	var req dto.UpdateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	doc, err := h.service.Update(c.Request.Context(), docID, in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CompleteIdempotency(c, http.StatusOK, "application/json", doc)
	c.JSON(http.StatusOK, doc)
}

// Delete handles DELETE /invoices/:id.
func (h *InvoiceHandler) Delete(c *gin.Context) {
	docID, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), docID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// ChangeStatus handles POST /invoices/:id/status.
func (h *InvoiceHandler) ChangeStatus(c *gin.Context) {
	docID, ok := h.parseID(c)
	if !ok {
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

// MarkPaid handles POST /invoices/:id/mark-paid.
func (h *InvoiceHandler) MarkPaid(c *gin.Context) {
	docID, ok := h.parseID(c)
	if !ok {
		return
	}

	var req dto.MarkPaidRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.MarkAsPaid(c.Request.Context(), docID, req.Comment)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CompleteIdempotency(c, http.StatusOK, "application/json", doc)
	c.JSON(http.StatusOK, doc)
}

// Reopen handles POST /invoices/:id/reopen - the only way out of the
// refunded state. The comment is mandatory.
func (h *InvoiceHandler) Reopen(c *gin.Context) {
	docID, ok := h.parseID(c)
	if !ok {
		return
	}

	var req dto.ReopenRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.Reopen(c.Request.Context(), docID, req.Comment)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CompleteIdempotency(c, http.StatusOK, "application/json", doc)
	c.JSON(http.StatusOK, doc)
}

// History handles GET /invoices/:id/history.
func (h *InvoiceHandler) History(c *gin.Context) {
	docID, ok := h.parseID(c)
	if !ok {
		return
	}

	rows, err := h.service.History(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": rows})
}

func (h *InvoiceHandler) parseID(c *gin.Context) (id.ID, bool) {
	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return id.Nil(), false
	}
	return docID, true
}
