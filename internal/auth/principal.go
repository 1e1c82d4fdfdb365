package auth

import "sort"

// Principal is an authenticated user together with their resolved
// permission set.
type Principal struct {
	User        User
	Permissions map[string]struct{}
}

// NewPrincipal builds a principal from a user and permission keys.
func NewPrincipal(user User, perms []string) Principal {
	set := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return Principal{User: user, Permissions: set}
}

// HasPermission reports whether the principal holds the exact permission
// key. No wildcard, prefix or case-insensitive semantics.
func (p Principal) HasPermission(key string) bool {
	_, ok := p.Permissions[key]
	return ok
}

// PermissionKeys returns the resolved set as a sorted slice for API
// responses.
func (p Principal) PermissionKeys() []string {
	out := make([]string, 0, len(p.Permissions))
	for k := range p.Permissions {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
