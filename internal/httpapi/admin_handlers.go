package httpapi

import (
	"net/http"
	"strings"
	"time"

	"loadtracker.app/internal/audit"
	"loadtracker.app/internal/auth"
)

type createUserRequest struct {
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	FullName  string   `json:"full_name"`
	Phone     string   `json:"phone"`
	Status    string   `json:"status"`
	RoleID    string   `json:"role_id"`
	ClientIDs []string `json:"client_ids"`
}

type updateUserRequest struct {
	Email     *string  `json:"email"`
	FullName  *string  `json:"full_name"`
	Phone     *string  `json:"phone"`
	Status    *string  `json:"status"`
	RoleID    *string  `json:"role_id"`
	ClientIDs []string `json:"client_ids"`
}

type createRoleRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	IsActive    *bool    `json:"is_active"`
	Permissions []string `json:"permissions"`
}

type updateRoleRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	IsActive    *bool    `json:"is_active"`
	Permissions []string `json:"permissions"`
}

type createGrantRequest struct {
	UserID    string     `json:"user_id"`
	AppID     string     `json:"app_id"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type updateGrantRequest struct {
	IsActive    *bool      `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at"`
	ClearExpiry bool       `json:"clear_expiry"`
}

type permissionGroup struct {
	Category    string            `json:"category"`
	Permissions []auth.Permission `json:"permissions"`
}

func (a *API) handleUsersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensurePermissions(w, r, auth.PermUsersRead) {
			return
		}
		number, size, err := parsePage(r)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		users, total, err := a.auth.ListUsers(r.Context(), auth.Page{Number: number, Size: size})
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		if users == nil {
			users = []auth.User{}
		}
		writeJSON(w, http.StatusOK, listResponse{Items: users, Total: total, Page: number, Limit: size})
	case http.MethodPost:
		if !a.ensurePermissions(w, r, auth.PermUsersCreate) {
			return
		}
		var req createUserRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		user, err := a.auth.CreateUser(r.Context(), auth.CreateUserInput{
			Email:     req.Email,
			Password:  req.Password,
			FullName:  req.FullName,
			Phone:     req.Phone,
			Status:    req.Status,
			RoleID:    req.RoleID,
			ClientIDs: req.ClientIDs,
		})
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.Event(r.Context(), "user.create", map[string]any{
			"user_id": user.ID,
			"email":   user.Email,
		})
		w.Header().Set("Location", "/v1/users/"+user.ID)
		writeJSON(w, http.StatusCreated, user)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "/v1/users/")
	if id == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		if !a.ensurePermissions(w, r, auth.PermUsersRead) {
			return
		}
		user, err := a.auth.GetUserRecord(r.Context(), id)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodPut:
		if !a.ensurePermissions(w, r, auth.PermUsersUpdate) {
			return
		}
		var req updateUserRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		user, err := a.auth.UpdateUser(r.Context(), id, auth.UserUpdate{
			Email:     req.Email,
			FullName:  req.FullName,
			Phone:     req.Phone,
			Status:    req.Status,
			RoleID:    req.RoleID,
			ClientIDs: req.ClientIDs,
		})
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.Event(r.Context(), "user.update", map[string]any{"user_id": id})
		writeJSON(w, http.StatusOK, user)
	case http.MethodDelete:
		if !a.ensurePermissions(w, r, auth.PermUsersDelete) {
			return
		}
		if err := a.auth.DeactivateUser(r.Context(), id); err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.Event(r.Context(), "user.deactivate", map[string]any{"user_id": id})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) handleRolesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensurePermissions(w, r, auth.PermRolesRead) {
			return
		}
		roles, err := a.auth.ListRoles(r.Context())
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		if roles == nil {
			roles = []auth.Role{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": roles})
	case http.MethodPost:
		if !a.ensurePermissions(w, r, auth.PermRolesCreate) {
			return
		}
		var req createRoleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		isActive := true
		if req.IsActive != nil {
			isActive = *req.IsActive
		}
		role, err := a.auth.CreateRole(r.Context(), req.Name, req.Description, isActive, req.Permissions)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.Event(r.Context(), "role.create", map[string]any{
			"role_id": role.ID,
			"name":    role.Name,
		})
		w.Header().Set("Location", "/v1/roles/"+role.ID)
		writeJSON(w, http.StatusCreated, role)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleRoleResource(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "/v1/roles/")
	if id == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		if !a.ensurePermissions(w, r, auth.PermRolesRead) {
			return
		}
		role, err := a.auth.GetRole(r.Context(), id)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, role)
	case http.MethodPut:
		if !a.ensurePermissions(w, r, auth.PermRolesUpdate) {
			return
		}
		var req updateRoleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		role, err := a.auth.UpdateRole(r.Context(), id, auth.RoleUpdate{
			Name:        req.Name,
			Description: req.Description,
			IsActive:    req.IsActive,
			Permissions: req.Permissions,
		})
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.Event(r.Context(), "role.update", map[string]any{"role_id": id})
		writeJSON(w, http.StatusOK, role)
	case http.MethodDelete:
		if !a.ensurePermissions(w, r, auth.PermRolesDelete) {
			return
		}
		if err := a.auth.DeleteRole(r.Context(), id); err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.Event(r.Context(), "role.delete", map[string]any{"role_id": id})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) handlePermissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.ensurePermissions(w, r, auth.PermPermissionsRead) {
		return
	}
	perms, err := a.auth.ListPermissions(r.Context())
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	// Preserves the store's category-then-key ordering.
	var groups []permissionGroup
	index := map[string]int{}
	for _, perm := range perms {
		i, ok := index[perm.Category]
		if !ok {
			i = len(groups)
			index[perm.Category] = i
			groups = append(groups, permissionGroup{Category: perm.Category})
		}
		groups[i].Permissions = append(groups[i].Permissions, perm)
	}
	if groups == nil {
		groups = []permissionGroup{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": groups})
}

func (a *API) handleApps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.ensurePermissions(w, r, auth.PermAppGrantsRead) {
		return
	}
	apps, err := a.auth.ListApps(r.Context())
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	if apps == nil {
		apps = []auth.App{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": apps})
}

func (a *API) handleGrantsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensurePermissions(w, r, auth.PermAppGrantsRead) {
			return
		}
		userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
		if userID == "" {
			writeError(w, r, http.StatusBadRequest, "user_id query parameter is required")
			return
		}
		grants, err := a.auth.ListGrants(r.Context(), userID)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		if grants == nil {
			grants = []auth.AppGrant{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": grants})
	case http.MethodPost:
		if !a.ensurePermissions(w, r, auth.PermAppGrantsCreate) {
			return
		}
		principal, _ := auth.PrincipalFromContext(r.Context())
		var req createGrantRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		grant, err := a.auth.CreateGrant(r.Context(), auth.NewGrant{
			UserID:    req.UserID,
			AppID:     req.AppID,
			GrantedBy: principal.User.ID,
			ExpiresAt: req.ExpiresAt,
		})
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.Event(r.Context(), "app_grant.create", map[string]any{
			"grant_id": grant.ID,
			"user_id":  grant.UserID,
			"app_id":   grant.AppID,
		})
		w.Header().Set("Location", "/v1/app-permissions/"+grant.ID)
		writeJSON(w, http.StatusCreated, grant)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleGrantResource(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "/v1/app-permissions/")
	if id == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodPut:
		if !a.ensurePermissions(w, r, auth.PermAppGrantsUpdate) {
			return
		}
		var req updateGrantRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		grant, err := a.auth.UpdateGrant(r.Context(), id, auth.GrantUpdate{
			IsActive:    req.IsActive,
			ExpiresAt:   req.ExpiresAt,
			ClearExpiry: req.ClearExpiry,
		})
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.Event(r.Context(), "app_grant.update", map[string]any{"grant_id": id})
		writeJSON(w, http.StatusOK, grant)
	case http.MethodDelete:
		if !a.ensurePermissions(w, r, auth.PermAppGrantsDelete) {
			return
		}
		if err := a.auth.DeleteGrant(r.Context(), id); err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.Event(r.Context(), "app_grant.delete", map[string]any{"grant_id": id})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodPut, http.MethodDelete)
	}
}
