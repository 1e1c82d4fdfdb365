package auth

import "time"

const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
	UserStatusPending  = "pending"
)

// User is an operator account. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Phone        string    `json:"phone,omitempty"`
	Status       string    `json:"status"`
	RoleID       string    `json:"role_id"`
	RoleName     string    `json:"role_name,omitempty"`
	ClientIDs    []string  `json:"client_ids,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Role is a named bundle of permission keys.
type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	Permissions []string  `json:"permissions"`
	UserCount   int       `json:"user_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Permission is a catalog entry; Key follows the resource.action convention.
type Permission struct {
	ID          string `json:"id"`
	Key         string `json:"key"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category"`
}

// App is an external application users can be granted access to.
type App struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	IsActive bool   `json:"is_active"`
}

// AppGrant permits one user to access one app. Unique per (user, app).
type AppGrant struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	AppID     string     `json:"app_id"`
	AppName   string     `json:"app_name,omitempty"`
	GrantedBy string     `json:"granted_by"`
	GrantedAt time.Time  `json:"granted_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	IsActive  bool       `json:"is_active"`
}

// Effective reports whether the grant currently permits access.
func (g AppGrant) Effective(now time.Time) bool {
	if !g.IsActive {
		return false
	}
	if g.ExpiresAt != nil && now.After(*g.ExpiresAt) {
		return false
	}
	return true
}

// NewUser carries validated input for user creation.
type NewUser struct {
	Email        string
	PasswordHash string
	FullName     string
	Phone        string
	Status       string
	RoleID       string
	ClientIDs    []string
}

// UserUpdate applies partial changes; nil fields are left untouched.
type UserUpdate struct {
	Email     *string
	FullName  *string
	Phone     *string
	Status    *string
	RoleID    *string
	ClientIDs []string
}

// RoleUpdate replaces role attributes; a non-nil Permissions slice replaces
// the whole permission set atomically.
type RoleUpdate struct {
	Name        *string
	Description *string
	IsActive    *bool
	Permissions []string
}

// NewGrant carries validated input for grant creation.
type NewGrant struct {
	UserID    string
	AppID     string
	GrantedBy string
	ExpiresAt *time.Time
}

// GrantUpdate toggles or reschedules an existing grant. ClearExpiry removes
// the expiry entirely; it wins over ExpiresAt when both are set.
type GrantUpdate struct {
	IsActive    *bool
	ExpiresAt   *time.Time
	ClearExpiry bool
}

// Page is a limit/offset window for list endpoints.
type Page struct {
	Number int
	Size   int
}

// Offset converts the page window to a SQL offset.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}
