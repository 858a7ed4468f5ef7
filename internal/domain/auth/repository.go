package auth

import (
	"context"

	"tally/internal/core/id"
)

// UserRepository manages user persistence.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, userID id.ID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, userID id.ID) error
	List(ctx context.Context, filter UserFilter) ([]*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// LoadRoles populates user.Roles and user.Permissions.
	LoadRoles(ctx context.Context, user *User) error
}

// UserFilter for listing users.
type UserFilter struct {
	Search   string
	IsActive *bool
	RoleCode string
	Limit    int
	Offset   int
}

// RoleRepository manages roles.
type RoleRepository interface {
	Create(ctx context.Context, role *Role) error
	GetByID(ctx context.Context, roleID id.ID) (*Role, error)
	GetByCode(ctx context.Context, code string) (*Role, error)
	Update(ctx context.Context, role *Role) error
	Delete(ctx context.Context, roleID id.ID) error
	List(ctx context.Context) ([]*Role, error)

	AssignToUser(ctx context.Context, userID, roleID id.ID) error
	RevokeFromUser(ctx context.Context, userID, roleID id.ID) error

	// LoadPermissions populates role.Permissions.
	LoadPermissions(ctx context.Context, role *Role) error
}

// PermissionRepository manages permissions.
type PermissionRepository interface {
	List(ctx context.Context) ([]*Permission, error)
	GetByCode(ctx context.Context, code string) (*Permission, error)
	AssignToRole(ctx context.Context, roleID, permissionID id.ID) error
	RevokeFromRole(ctx context.Context, roleID, permissionID id.ID) error
}

// TokenRepository manages refresh tokens.
type TokenRepository interface {
	Save(ctx context.Context, token *RefreshToken) error
	GetByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	Revoke(ctx context.Context, tokenID id.ID, reason string) error
	RevokeAllForUser(ctx context.Context, userID id.ID, reason string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
