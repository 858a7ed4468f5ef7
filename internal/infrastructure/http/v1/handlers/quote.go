package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tally/internal/core/apperror"
	"tally/internal/core/id"
	"tally/internal/core/security"
	"tally/internal/domain"
	"tally/internal/domain/documents/convert"
	"tally/internal/domain/documents/quote"
	"tally/internal/infrastructure/http/v1/dto"
)

// QuoteHandler handles quote document endpoints.
type QuoteHandler struct {
	*BaseHandler
	service   *quote.Service
	converter *convert.Converter
	authz     *security.Authorizer
}

// NewQuoteHandler creates a new quote handler.
func NewQuoteHandler(base *BaseHandler, service *quote.Service, converter *convert.Converter, authz *security.Authorizer) *QuoteHandler {
	return &QuoteHandler{
		BaseHandler: base,
		service:     service,
		converter:   converter,
		authz:       authz,
	}
}

// List handles GET /quotes.
func (h *QuoteHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := quote.ListFilter{
		ListFilter: domain.ListFilter{
			Search:  c.Query("search"),
			Limit:   h.ParseIntQuery(c, "limit", 50),
			Offset:  h.ParseIntQuery(c, "offset", 0),
			OrderBy: c.DefaultQuery("orderBy", "-date"),
		},
	}
	if c.Query("includeDeleted") == "true" {
		filter.IncludeDeleted = h.authz.CanViewDeleted(ctx, security.ResourceQuote)
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

// Get handles GET /quotes/:id.
func (h *QuoteHandler) Get(c *gin.Context) {
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

// Create handles POST /quotes.
func (h *QuoteHandler) Create(c *gin.Context) {
	var req dto.CreateQuoteRequest
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

// Update handles PUT /quotes/:id. Only drafts are editable.
func (h *QuoteHandler) Update(c *gin.Context) {
	docID, ok := h.parseID(c)
	if !ok {
		return
	}

	var req dto.UpdateQuoteRequest
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

// Delete handles DELETE /quotes/:id.
func (h *QuoteHandler) Delete(c *gin.Context) {
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

// ChangeStatus handles POST /quotes/:id/status.
func (h *QuoteHandler) ChangeStatus(c *gin.Context) {
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

// History handles GET /quotes/:id/history.
func (h *QuoteHandler) History(c *gin.Context) {
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

// Duplicate handles POST /quotes/:id/duplicate - copy into a new draft.
func (h *QuoteHandler) Duplicate(c *gin.Context) {
	docID, ok := h.parseID(c)
	if !ok {
		return
	}

	doc, err := h.service.Duplicate(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CompleteIdempotency(c, http.StatusCreated, "application/json", doc)
	c.JSON(http.StatusCreated, doc)
}

// MarkExpired handles POST /quotes/:id/expire.
func (h *QuoteHandler) MarkExpired(c *gin.Context) {
	docID, ok := h.parseID(c)
	if !ok {
		return
	}

	doc, err := h.service.MarkExpired(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CompleteIdempotency(c, http.StatusOK, "application/json", doc)
	c.JSON(http.StatusOK, doc)
}

// ConvertToOrder handles POST /quotes/:id/convert-to-order.
func (h *QuoteHandler) ConvertToOrder(c *gin.Context) {
	docID, ok := h.parseID(c)
	if !ok {
		return
	}

	doc, err := h.converter.ToOrder(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CompleteIdempotency(c, http.StatusCreated, "application/json", doc)
	c.JSON(http.StatusCreated, doc)
}

// ConvertToInvoice handles POST /quotes/:id/convert-to-invoice.
func (h *QuoteHandler) ConvertToInvoice(c *gin.Context) {
	docID, ok := h.parseID(c)
	if !ok {
		return
	}

	doc, err := h.converter.ToInvoice(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CompleteIdempotency(c, http.StatusCreated, "application/json", doc)
	c.JSON(http.StatusCreated, doc)
}

func (h *QuoteHandler) parseID(c *gin.Context) (id.ID, bool) {
	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return id.Nil(), false
	}
	return docID, true
}

// parseTimeQuery parses an optional RFC 3339 time query parameter.
// The second return value is false on malformed input.
func parseTimeQuery(c *gin.Context, key string) (*time.Time, bool) {
	val := c.Query(key)
	if val == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		// Bare dates are accepted too.
		t, err = time.Parse("2006-01-02", val)
		if err != nil {
			return nil, false
		}
	}
	return &t, true
}
