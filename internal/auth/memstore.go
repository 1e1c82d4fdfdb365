package auth

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"loadtracker.app/internal/ids"
)

// MemoryStore is an in-memory Store used in tests and for local development
// without a database. It enforces the same uniqueness rules the SQL schema
// does.
type MemoryStore struct {
	mu     sync.Mutex
	users  map[string]*User
	roles  map[string]*Role
	perms  []Permission
	apps   map[string]*App
	grants map[string]*AppGrant
	now    func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[string]*User),
		roles:  make(map[string]*Role),
		apps:   make(map[string]*App),
		grants: make(map[string]*AppGrant),
		now:    time.Now,
	}
}

// AddApp seeds an app into the catalog.
func (m *MemoryStore) AddApp(app App) App {
	m.mu.Lock()
	defer m.mu.Unlock()
	if app.ID == "" {
		app.ID = ids.New()
	}
	m.apps[app.ID] = &app
	return app
}

func (m *MemoryStore) CreateUser(_ context.Context, nu NewUser) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == nu.Email {
			return User{}, ErrConflict
		}
	}
	role, ok := m.roles[nu.RoleID]
	if !ok {
		return User{}, ErrNotFound
	}
	now := m.now().UTC()
	user := &User{
		ID:           ids.New(),
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
		FullName:     nu.FullName,
		Phone:        nu.Phone,
		Status:       nu.Status,
		RoleID:       nu.RoleID,
		RoleName:     role.Name,
		ClientIDs:    append([]string(nil), nu.ClientIDs...),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.users[user.ID] = user
	return *user, nil
}

func (m *MemoryStore) GetUser(_ context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return *u, nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return *u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *MemoryStore) ListUsers(_ context.Context, page Page) ([]User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]User, 0, len(m.users))
	for _, u := range m.users {
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := len(all)
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.Size
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (m *MemoryStore) UpdateUser(_ context.Context, id string, upd UserUpdate) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	if upd.Email != nil {
		for oid, other := range m.users {
			if oid != id && other.Email == *upd.Email {
				return User{}, ErrConflict
			}
		}
		u.Email = *upd.Email
	}
	if upd.FullName != nil {
		u.FullName = *upd.FullName
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
	}
	if upd.Status != nil {
		u.Status = *upd.Status
	}
	if upd.RoleID != nil {
		role, ok := m.roles[*upd.RoleID]
		if !ok {
			return User{}, ErrNotFound
		}
		u.RoleID = *upd.RoleID
		u.RoleName = role.Name
	}
	if upd.ClientIDs != nil {
		u.ClientIDs = append([]string(nil), upd.ClientIDs...)
	}
	u.UpdatedAt = m.now().UTC()
	return *u, nil
}

func (m *MemoryStore) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = m.now().UTC()
	return nil
}

func (m *MemoryStore) DeactivateUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Status = UserStatusInactive
	u.UpdatedAt = m.now().UTC()
	return nil
}

func (m *MemoryStore) CreateRole(_ context.Context, name, description string, isActive bool, permissions []string) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.roles {
		if strings.EqualFold(r.Name, name) {
			return Role{}, ErrConflict
		}
	}
	now := m.now().UTC()
	role := &Role{
		ID:          ids.New(),
		Name:        name,
		Description: description,
		IsActive:    isActive,
		Permissions: append([]string(nil), permissions...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.roles[role.ID] = role
	return m.roleView(role), nil
}

func (m *MemoryStore) GetRole(_ context.Context, id string) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	return m.roleView(r), nil
}

func (m *MemoryStore) ListRoles(_ context.Context) ([]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, m.roleView(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) UpdateRole(_ context.Context, id string, upd RoleUpdate) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	if upd.Name != nil {
		for oid, other := range m.roles {
			if oid != id && strings.EqualFold(other.Name, *upd.Name) {
				return Role{}, ErrConflict
			}
		}
		oldName := r.Name
		r.Name = *upd.Name
		for _, u := range m.users {
			if u.RoleName == oldName {
				u.RoleName = r.Name
			}
		}
	}
	if upd.Description != nil {
		r.Description = *upd.Description
	}
	if upd.IsActive != nil {
		r.IsActive = *upd.IsActive
	}
	if upd.Permissions != nil {
		r.Permissions = append([]string(nil), upd.Permissions...)
	}
	r.UpdatedAt = m.now().UTC()
	return m.roleView(r), nil
}

func (m *MemoryStore) DeleteRole(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return ErrNotFound
	}
	for _, u := range m.users {
		if u.RoleID == r.ID {
			return ErrConflict
		}
	}
	delete(m.roles, id)
	return nil
}

func (m *MemoryStore) RolePermissions(_ context.Context, roleName string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.roles {
		if r.Name == roleName {
			if !r.IsActive {
				return nil, nil
			}
			return append([]string(nil), r.Permissions...), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) EnsurePermissions(_ context.Context, perms []Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	known := make(map[string]struct{}, len(m.perms))
	for _, p := range m.perms {
		known[p.Key] = struct{}{}
	}
	for _, p := range perms {
		if _, ok := known[p.Key]; ok {
			continue
		}
		if p.ID == "" {
			p.ID = ids.New()
		}
		m.perms = append(m.perms, p)
		known[p.Key] = struct{}{}
	}
	return nil
}

func (m *MemoryStore) ListPermissions(_ context.Context) ([]Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]Permission(nil), m.perms...)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MemoryStore) ListApps(_ context.Context) ([]App, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]App, 0, len(m.apps))
	for _, a := range m.apps {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) CreateGrant(_ context.Context, ng NewGrant) (AppGrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[ng.UserID]; !ok {
		return AppGrant{}, ErrNotFound
	}
	app, ok := m.apps[ng.AppID]
	if !ok {
		return AppGrant{}, ErrNotFound
	}
	for _, g := range m.grants {
		if g.UserID == ng.UserID && g.AppID == ng.AppID {
			return AppGrant{}, ErrConflict
		}
	}
	grant := &AppGrant{
		ID:        ids.New(),
		UserID:    ng.UserID,
		AppID:     ng.AppID,
		AppName:   app.Name,
		GrantedBy: ng.GrantedBy,
		GrantedAt: m.now().UTC(),
		ExpiresAt: ng.ExpiresAt,
		IsActive:  true,
	}
	m.grants[grant.ID] = grant
	return *grant, nil
}

func (m *MemoryStore) ListGrants(_ context.Context, userID string) ([]AppGrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AppGrant, 0, len(m.grants))
	for _, g := range m.grants {
		if userID != "" && g.UserID != userID {
			continue
		}
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) UpdateGrant(_ context.Context, id string, upd GrantUpdate) (AppGrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.grants[id]
	if !ok {
		return AppGrant{}, ErrNotFound
	}
	if upd.IsActive != nil {
		g.IsActive = *upd.IsActive
	}
	if upd.ClearExpiry {
		g.ExpiresAt = nil
	} else if upd.ExpiresAt != nil {
		g.ExpiresAt = upd.ExpiresAt
	}
	return *g, nil
}

func (m *MemoryStore) DeleteGrant(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.grants[id]; !ok {
		return ErrNotFound
	}
	delete(m.grants, id)
	return nil
}

func (m *MemoryStore) AppsForUser(_ context.Context, userID string, now time.Time) ([]App, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []App
	for _, g := range m.grants {
		if g.UserID != userID || !g.Effective(now) {
			continue
		}
		app, ok := m.apps[g.AppID]
		if !ok || !app.IsActive {
			continue
		}
		out = append(out, *app)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) roleView(r *Role) Role {
	view := *r
	view.Permissions = append([]string(nil), r.Permissions...)
	count := 0
	for _, u := range m.users {
		if u.RoleID == r.ID {
			count++
		}
	}
	view.UserCount = count
	return view
}
