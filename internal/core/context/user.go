// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// UserContext contains authenticated user information.
// Threaded explicitly through each operation instead of ambient globals so
// domain logic stays testable without a simulated HTTP context.
type UserContext struct {
	UserID      string
	Email       string
	Roles       []string
	Permissions []string
	IsAdmin     bool
	SessionID   string
}

// RequestMetadata carries transport-level facts used for audit and login
// logging (never for business decisions).
type RequestMetadata struct {
	IP        string
	UserAgent string
}

type userContextKey struct{}
type requestMetadataKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// WithRequestMetadata adds request metadata to context.
func WithRequestMetadata(ctx context.Context, meta *RequestMetadata) context.Context {
	return context.WithValue(ctx, requestMetadataKey{}, meta)
}

// GetRequestMetadata returns request metadata from context, or zero values.
func GetRequestMetadata(ctx context.Context) RequestMetadata {
	if v, ok := ctx.Value(requestMetadataKey{}).(*RequestMetadata); ok && v != nil {
		return *v
	}
	return RequestMetadata{}
}

// HasRole checks if user has specific role.
func HasRole(ctx context.Context, role string) bool {
	u := GetUser(ctx)
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the current user is an administrator.
func IsAdmin(ctx context.Context) bool {
	u := GetUser(ctx)
	return u != nil && u.IsAdmin
}
