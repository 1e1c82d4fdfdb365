package auth

import (
	"context"
	"fmt"
	"strings"

	"loadtracker.app/internal/obs"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// CreateUserInput is the admin-facing payload for user creation.
type CreateUserInput struct {
	Email     string
	Password  string
	FullName  string
	Phone     string
	Status    string
	RoleID    string
	ClientIDs []string
}

// CreateUser validates input, hashes the password and stores the user. The
// welcome email is best-effort: a send failure is logged and the creation
// still succeeds.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return User{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" {
		return User{}, fmt.Errorf("%w: full_name is required", ErrInvalidInput)
	}
	roleID := strings.TrimSpace(in.RoleID)
	if roleID == "" {
		return User{}, fmt.Errorf("%w: role_id is required", ErrInvalidInput)
	}
	status, err := normalizeStatus(in.Status, UserStatusActive)
	if err != nil {
		return User{}, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return User{}, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	user, err := s.store.CreateUser(ctx, NewUser{
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Phone:        strings.TrimSpace(in.Phone),
		Status:       status,
		RoleID:       roleID,
		ClientIDs:    dedupeStrings(in.ClientIDs),
	})
	if err != nil {
		return User{}, err
	}

	if s.mailer != nil {
		if err := s.mailer.SendWelcome(ctx, user.Email, user.FullName); err != nil {
			obs.Error("welcome email failed", map[string]any{
				"user_id": user.ID,
				"error":   err.Error(),
			})
		}
	}
	return user, nil
}

// GetUserRecord returns a single user for admin views.
func (s *Service) GetUserRecord(ctx context.Context, id string) (User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.store.GetUser(ctx, id)
}

// ListUsers returns a page of users plus the total count.
func (s *Service) ListUsers(ctx context.Context, page Page) ([]User, int, error) {
	return s.store.ListUsers(ctx, clampPage(page))
}

// UpdateUser applies a partial update after validating the changed fields.
func (s *Service) UpdateUser(ctx context.Context, id string, upd UserUpdate) (User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if upd.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*upd.Email))
		if email == "" || !strings.Contains(email, "@") {
			return User{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
		}
		upd.Email = &email
	}
	if upd.FullName != nil {
		name := strings.TrimSpace(*upd.FullName)
		if name == "" {
			return User{}, fmt.Errorf("%w: full_name is required", ErrInvalidInput)
		}
		upd.FullName = &name
	}
	if upd.Status != nil {
		status, err := normalizeStatus(*upd.Status, "")
		if err != nil {
			return User{}, err
		}
		upd.Status = &status
	}
	if upd.RoleID != nil {
		roleID := strings.TrimSpace(*upd.RoleID)
		if roleID == "" {
			return User{}, fmt.Errorf("%w: role_id is required", ErrInvalidInput)
		}
		upd.RoleID = &roleID
	}
	if upd.ClientIDs != nil {
		upd.ClientIDs = dedupeStrings(upd.ClientIDs)
	}
	return s.store.UpdateUser(ctx, id, upd)
}

// DeactivateUser marks the user inactive. Records are never hard-deleted.
func (s *Service) DeactivateUser(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.store.DeactivateUser(ctx, id)
}

// UpdateProfile restricts self-service edits to name and phone.
func (s *Service) UpdateProfile(ctx context.Context, userID, fullName, phone string) (User, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return User{}, fmt.Errorf("%w: full_name is required", ErrInvalidInput)
	}
	phone = strings.TrimSpace(phone)
	return s.store.UpdateUser(ctx, userID, UserUpdate{FullName: &fullName, Phone: &phone})
}

// CreateRole stores a role together with its permission set.
func (s *Service) CreateRole(ctx context.Context, name, description string, isActive bool, permissions []string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name is required", ErrInvalidInput)
	}
	return s.store.CreateRole(ctx, name, strings.TrimSpace(description), isActive, dedupeStrings(permissions))
}

// GetRole returns a role with its permission set and user count.
func (s *Service) GetRole(ctx context.Context, id string) (Role, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Role{}, fmt.Errorf("%w: role id is required", ErrInvalidInput)
	}
	return s.store.GetRole(ctx, id)
}

// ListRoles returns all roles with permission sets and user counts.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.store.ListRoles(ctx)
}

// UpdateRole applies attribute changes; a non-nil permission slice replaces
// the whole set in one transaction, so a failure leaves the prior set.
func (s *Service) UpdateRole(ctx context.Context, id string, upd RoleUpdate) (Role, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Role{}, fmt.Errorf("%w: role id is required", ErrInvalidInput)
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return Role{}, fmt.Errorf("%w: role name is required", ErrInvalidInput)
		}
		upd.Name = &name
	}
	if upd.Permissions != nil {
		upd.Permissions = dedupeStrings(upd.Permissions)
		if upd.Permissions == nil {
			upd.Permissions = []string{}
		}
	}
	return s.store.UpdateRole(ctx, id, upd)
}

// DeleteRole removes a role; the store rejects it with ErrConflict while
// any user still references the role.
func (s *Service) DeleteRole(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: role id is required", ErrInvalidInput)
	}
	return s.store.DeleteRole(ctx, id)
}

// ListPermissions returns the permission catalog.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.store.ListPermissions(ctx)
}

// ListApps returns the app catalog.
func (s *Service) ListApps(ctx context.Context) ([]App, error) {
	return s.store.ListApps(ctx)
}

// CreateGrant records app access for a user. Duplicate (user, app) pairs
// surface as ErrConflict from the store.
func (s *Service) CreateGrant(ctx context.Context, ng NewGrant) (AppGrant, error) {
	ng.UserID = strings.TrimSpace(ng.UserID)
	ng.AppID = strings.TrimSpace(ng.AppID)
	if ng.UserID == "" || ng.AppID == "" {
		return AppGrant{}, fmt.Errorf("%w: user_id and app_id are required", ErrInvalidInput)
	}
	if ng.ExpiresAt != nil && !ng.ExpiresAt.After(s.now()) {
		return AppGrant{}, fmt.Errorf("%w: expires_at must be in the future", ErrInvalidInput)
	}
	return s.store.CreateGrant(ctx, ng)
}

// ListGrants returns grants, optionally filtered by user.
func (s *Service) ListGrants(ctx context.Context, userID string) ([]AppGrant, error) {
	return s.store.ListGrants(ctx, strings.TrimSpace(userID))
}

// UpdateGrant toggles or reschedules a grant.
func (s *Service) UpdateGrant(ctx context.Context, id string, upd GrantUpdate) (AppGrant, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return AppGrant{}, fmt.Errorf("%w: grant id is required", ErrInvalidInput)
	}
	return s.store.UpdateGrant(ctx, id, upd)
}

// DeleteGrant removes a grant record.
func (s *Service) DeleteGrant(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: grant id is required", ErrInvalidInput)
	}
	return s.store.DeleteGrant(ctx, id)
}

// AppsForUser returns the apps a user can reach right now.
func (s *Service) AppsForUser(ctx context.Context, userID string) ([]App, error) {
	return s.store.AppsForUser(ctx, userID, s.now().UTC())
}

func normalizeStatus(raw, def string) (string, error) {
	status := strings.TrimSpace(strings.ToLower(raw))
	if status == "" {
		if def == "" {
			return "", fmt.Errorf("%w: status is required", ErrInvalidInput)
		}
		return def, nil
	}
	switch status {
	case UserStatusActive, UserStatusInactive, UserStatusPending:
		return status, nil
	default:
		return "", fmt.Errorf("%w: unsupported status %s", ErrInvalidInput, status)
	}
}

func clampPage(p Page) Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = defaultPageSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	return p
}

func dedupeStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	var result []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
