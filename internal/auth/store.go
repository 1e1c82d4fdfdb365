package auth

import (
	"context"
	"time"
)

// Store describes the persistence operations the auth subsystem needs.
// Implementations map database constraint violations to ErrConflict and
// missing rows to ErrNotFound.
type Store interface {
	CreateUser(ctx context.Context, nu NewUser) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context, page Page) ([]User, int, error)
	UpdateUser(ctx context.Context, id string, upd UserUpdate) (User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	// DeactivateUser flips status to inactive; users are never hard-deleted.
	DeactivateUser(ctx context.Context, id string) error

	CreateRole(ctx context.Context, name, description string, isActive bool, permissions []string) (Role, error)
	GetRole(ctx context.Context, id string) (Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
	// UpdateRole applies attribute changes and, when upd.Permissions is
	// non-nil, replaces the permission set in the same transaction.
	UpdateRole(ctx context.Context, id string, upd RoleUpdate) (Role, error)
	// DeleteRole fails with ErrConflict while any user references the role.
	DeleteRole(ctx context.Context, id string) error
	// RolePermissions resolves a role name to its flat permission-key set.
	RolePermissions(ctx context.Context, roleName string) ([]string, error)

	EnsurePermissions(ctx context.Context, perms []Permission) error
	ListPermissions(ctx context.Context) ([]Permission, error)

	ListApps(ctx context.Context) ([]App, error)
	CreateGrant(ctx context.Context, ng NewGrant) (AppGrant, error)
	ListGrants(ctx context.Context, userID string) ([]AppGrant, error)
	UpdateGrant(ctx context.Context, id string, upd GrantUpdate) (AppGrant, error)
	DeleteGrant(ctx context.Context, id string) error
	// AppsForUser returns apps whose grant is active and unexpired at now.
	AppsForUser(ctx context.Context, userID string, now time.Time) ([]App, error)
}

// Mailer sends the notification emails the auth flows trigger. Failures are
// logged by callers and never fail the triggering request.
type Mailer interface {
	SendWelcome(ctx context.Context, to, fullName string) error
	SendPasswordReset(ctx context.Context, to, resetURL string) error
}
