// Package security provides authorization and access control.
package security

import (
	"context"
	"fmt"

	"tally/internal/core/apperror"
	appctx "tally/internal/core/context"
)

// Action defines operations subject to authorization.
type Action string

const (
	ActionRead         Action = "read"
	ActionCreate       Action = "create"
	ActionUpdate       Action = "update"
	ActionDelete       Action = "delete"
	ActionRestore      Action = "restore"
	ActionForceDelete  Action = "force_delete"
	ActionChangeStatus Action = "change_status"
	ActionConvert      Action = "convert"
	ActionExport       Action = "export"
	ActionViewDeleted  Action = "view_deleted"
	ActionViewAudit    Action = "view_audit"
)

// Resource identifies the entity type an action applies to.
type Resource string

const (
	ResourceClient        Resource = "client"
	ResourceProduct       Resource = "product"
	ResourceCategory      Resource = "category"
	ResourceCurrency      Resource = "currency"
	ResourceTaxRate       Resource = "tax_rate"
	ResourceQuote         Resource = "quote"
	ResourceOrder         Resource = "order"
	ResourceInvoice       Resource = "invoice"
	ResourceStockMovement Resource = "stock_movement"
	ResourceUser          Resource = "user"
	ResourceAuditLog      Resource = "audit_log"
)

// Well-known role codes.
const (
	RoleAdmin      = "admin"
	RoleAccountant = "accountant"
	RoleManager    = "manager"
	RoleViewer     = "viewer"
)

// Authorizer is the single source of truth for permission decisions,
// keyed by (action, resource, roles). Handlers and services consult it
// instead of scattering inline role checks.
type Authorizer struct {
	rules map[Resource]map[Action][]string
}

// NewAuthorizer creates an Authorizer with the default role matrix.
func NewAuthorizer() *Authorizer {
	read := []string{RoleAdmin, RoleAccountant, RoleManager, RoleViewer}
	write := []string{RoleAdmin, RoleAccountant, RoleManager}
	accounting := []string{RoleAdmin, RoleAccountant}
	adminOnly := []string{RoleAdmin}

	rules := make(map[Resource]map[Action][]string)

	catalogs := []Resource{ResourceClient, ResourceProduct, ResourceCategory, ResourceCurrency, ResourceTaxRate}
	for _, res := range catalogs {
		rules[res] = map[Action][]string{
			ActionRead:        read,
			ActionCreate:      write,
			ActionUpdate:      write,
			ActionDelete:      write,
			ActionRestore:     write,
			ActionViewDeleted: adminOnly,
		}
	}

	documents := []Resource{ResourceQuote, ResourceOrder, ResourceInvoice}
	for _, res := range documents {
		rules[res] = map[Action][]string{
			ActionRead:         read,
			ActionCreate:       write,
			ActionUpdate:       write,
			ActionDelete:       write,
			ActionChangeStatus: write,
			ActionConvert:      write,
			ActionExport:       read,
			ActionViewDeleted:  adminOnly,
		}
	}

	rules[ResourceStockMovement] = map[Action][]string{
		ActionRead:        read,
		ActionCreate:      write,
		ActionUpdate:      write,
		ActionDelete:      write,
		ActionRestore:     write,
		ActionForceDelete: adminOnly,
		ActionViewDeleted: adminOnly,
	}

	rules[ResourceUser] = map[Action][]string{
		ActionRead:   adminOnly,
		ActionCreate: adminOnly,
		ActionUpdate: adminOnly,
		ActionDelete: adminOnly,
	}

	rules[ResourceAuditLog] = map[Action][]string{
		ActionRead:      accounting,
		ActionViewAudit: accounting,
		ActionExport:    accounting,
	}

	return &Authorizer{rules: rules}
}

// Can reports whether any of the user's roles permits action on resource.
// Admins are always permitted.
func (a *Authorizer) Can(user *appctx.UserContext, action Action, resource Resource) bool {
	if user == nil {
		return false
	}
	if user.IsAdmin {
		return true
	}

	actions, ok := a.rules[resource]
	if !ok {
		return false
	}
	allowed, ok := actions[action]
	if !ok {
		return false
	}

	for _, role := range user.Roles {
		for _, code := range allowed {
			if role == code {
				return true
			}
		}
	}
	return false
}

// Require returns a Forbidden error if the context user may not perform
// action on resource.
func (a *Authorizer) Require(ctx context.Context, action Action, resource Resource) error {
	user := appctx.GetUser(ctx)
	if user == nil {
		return apperror.NewUnauthorized("authentication required")
	}
	if !a.Can(user, action, resource) {
		return apperror.NewForbidden(
			fmt.Sprintf("action %s on %s requires elevated role", action, resource),
		).WithDetail("action", string(action)).WithDetail("resource", string(resource))
	}
	return nil
}

// CanViewDeleted resolves the includeDeleted query scope: soft-deleted rows
// are visible only to users allowed view_deleted on the resource. The
// decision is made once here and passed down as an explicit filter flag,
// never by mutating a query mid-build.
func (a *Authorizer) CanViewDeleted(ctx context.Context, resource Resource) bool {
	return a.Can(appctx.GetUser(ctx), ActionViewDeleted, resource)
}
