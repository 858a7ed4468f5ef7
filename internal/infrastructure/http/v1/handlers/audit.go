package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tally/internal/core/apperror"
	"tally/internal/core/id"
	"tally/internal/domain/audit"
)

// AuditHandler exposes the administrative action log and the login log.
type AuditHandler struct {
	*BaseHandler
	service *audit.Service
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(base *BaseHandler, service *audit.Service) *AuditHandler {
	return &AuditHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Query handles GET /audit - filtered audit log, newest first.
func (h *AuditHandler) Query(c *gin.Context) {
	ctx := c.Request.Context()

	filter := audit.QueryFilter{
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}
	if entityType := c.Query("entityType"); entityType != "" {
		filter.EntityType = &entityType
	}
	if entityStr := c.Query("entityId"); entityStr != "" {
		entityID, err := id.Parse(entityStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid entityId format"))
			return
		}
		filter.EntityID = &entityID
	}
	if actionStr := c.Query("action"); actionStr != "" {
		action := audit.Action(actionStr)
		filter.Action = &action
	}
	if userID := c.Query("userId"); userID != "" {
		filter.UserID = &userID
	}
	var ok bool
	if filter.From, ok = parseTimeQuery(c, "from"); !ok {
		h.Error(c, apperror.NewValidation("invalid from format (RFC 3339 expected)"))
		return
	}
	if filter.To, ok = parseTimeQuery(c, "to"); !ok {
		h.Error(c, apperror.NewValidation("invalid to format (RFC 3339 expected)"))
		return
	}

	entries, err := h.service.Query(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": entries})
}

// EntityHistory handles GET /audit/:entityType/:id - full change
// history of one entity.
func (h *AuditHandler) EntityHistory(c *gin.Context) {
	ctx := c.Request.Context()

	entityID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	limit := h.ParseIntQuery(c, "limit", 100)

	entries, err := h.service.EntityHistory(ctx, c.Param("entityType"), entityID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": entries})
}

// Logins handles GET /audit/logins - authentication attempts, newest
// first, optionally filtered by email.
func (h *AuditHandler) Logins(c *gin.Context) {
	ctx := c.Request.Context()

	var email *string
	if e := c.Query("email"); e != "" {
		email = &e
	}
	limit := h.ParseIntQuery(c, "limit", 50)
	offset := h.ParseIntQuery(c, "offset", 0)

	entries, err := h.service.Logins(ctx, email, limit, offset)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": entries})
}
