package security

import (
	"context"
	"testing"

	"tally/internal/core/apperror"
	appctx "tally/internal/core/context"
)

func userWith(roles ...string) *appctx.UserContext {
	return &appctx.UserContext{UserID: "u1", Roles: roles}
}

func TestAuthorizer_Can(t *testing.T) {
	authz := NewAuthorizer()

	tests := []struct {
		name     string
		user     *appctx.UserContext
		action   Action
		resource Resource
		want     bool
	}{
		{"nil user denied", nil, ActionRead, ResourceClient, false},
		{"viewer reads catalogs", userWith(RoleViewer), ActionRead, ResourceProduct, true},
		{"viewer cannot create", userWith(RoleViewer), ActionCreate, ResourceProduct, false},
		{"viewer cannot change status", userWith(RoleViewer), ActionChangeStatus, ResourceInvoice, false},
		{"manager writes documents", userWith(RoleManager), ActionCreate, ResourceQuote, true},
		{"manager converts quotes", userWith(RoleManager), ActionConvert, ResourceQuote, true},
		{"manager cannot view audit", userWith(RoleManager), ActionViewAudit, ResourceAuditLog, false},
		{"accountant views audit", userWith(RoleAccountant), ActionViewAudit, ResourceAuditLog, true},
		{"manager cannot see deleted", userWith(RoleManager), ActionViewDeleted, ResourceClient, false},
		{"manager cannot force delete", userWith(RoleManager), ActionForceDelete, ResourceStockMovement, false},
		{"manager cannot manage users", userWith(RoleManager), ActionRead, ResourceUser, false},
		{"unknown role denied", userWith("intern"), ActionRead, ResourceClient, false},
		{"multiple roles pick the strongest", userWith(RoleViewer, RoleAccountant), ActionViewAudit, ResourceAuditLog, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := authz.Can(tt.user, tt.action, tt.resource); got != tt.want {
				t.Errorf("Can(%s, %s) = %v, want %v", tt.action, tt.resource, got, tt.want)
			}
		})
	}
}

func TestAuthorizer_AdminBypassesMatrix(t *testing.T) {
	authz := NewAuthorizer()
	admin := &appctx.UserContext{UserID: "a1", IsAdmin: true}

	cases := []struct {
		action   Action
		resource Resource
	}{
		{ActionForceDelete, ResourceStockMovement},
		{ActionViewDeleted, ResourceInvoice},
		{ActionViewAudit, ResourceAuditLog},
		{ActionDelete, ResourceUser},
	}
	for _, c := range cases {
		if !authz.Can(admin, c.action, c.resource) {
			t.Errorf("admin denied %s on %s", c.action, c.resource)
		}
	}
}

func TestAuthorizer_Require(t *testing.T) {
	authz := NewAuthorizer()

	anon := context.Background()
	err := authz.Require(anon, ActionRead, ResourceClient)
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.HTTPStatus != 401 {
		t.Errorf("anonymous: got %v, want unauthorized", err)
	}

	viewer := appctx.WithUser(context.Background(), userWith(RoleViewer))
	err = authz.Require(viewer, ActionDelete, ResourceClient)
	appErr, ok = apperror.AsAppError(err)
	if !ok || appErr.HTTPStatus != 403 {
		t.Errorf("forbidden action: got %v, want forbidden", err)
	}

	if err := authz.Require(viewer, ActionRead, ResourceClient); err != nil {
		t.Errorf("allowed action rejected: %v", err)
	}
}

func TestAuthorizer_CanViewDeleted(t *testing.T) {
	authz := NewAuthorizer()

	viewer := appctx.WithUser(context.Background(), userWith(RoleViewer))
	if authz.CanViewDeleted(viewer, ResourceClient) {
		t.Error("viewer must not see deleted rows")
	}

	admin := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "a1", IsAdmin: true})
	if !authz.CanViewDeleted(admin, ResourceClient) {
		t.Error("admin must see deleted rows")
	}

	if authz.CanViewDeleted(context.Background(), ResourceClient) {
		t.Error("anonymous must not see deleted rows")
	}
}
