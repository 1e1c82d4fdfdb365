package auth

// Permission keys gating API operations. Checks are exact string matches
// against the caller's resolved set; there is no wildcard or hierarchy and
// no role-name special casing anywhere in the service.
const (
	PermUsersRead   = "users.read"
	PermUsersCreate = "users.create"
	PermUsersUpdate = "users.update"
	PermUsersDelete = "users.delete"

	PermRolesRead   = "roles.read"
	PermRolesCreate = "roles.create"
	PermRolesUpdate = "roles.update"
	PermRolesDelete = "roles.delete"

	PermPermissionsRead = "permissions.read"

	PermAppGrantsRead   = "app_grants.read"
	PermAppGrantsCreate = "app_grants.create"
	PermAppGrantsUpdate = "app_grants.update"
	PermAppGrantsDelete = "app_grants.delete"

	PermInventoryRead   = "inventory.read"
	PermInventoryCreate = "inventory.create"
	PermInventoryUpdate = "inventory.update"
	PermInventoryDelete = "inventory.delete"

	PermProjectsRead   = "projects.read"
	PermProjectsCreate = "projects.create"
	PermProjectsUpdate = "projects.update"
	PermProjectsDelete = "projects.delete"

	PermUploadsCreate = "uploads.create"
)

// BuiltinPermissions is the catalog ensured at startup; Category drives
// grouping in clients.
var BuiltinPermissions = []Permission{
	{Key: PermUsersRead, Description: "View users", Category: "User Management"},
	{Key: PermUsersCreate, Description: "Create users", Category: "User Management"},
	{Key: PermUsersUpdate, Description: "Edit users", Category: "User Management"},
	{Key: PermUsersDelete, Description: "Deactivate users", Category: "User Management"},

	{Key: PermRolesRead, Description: "View roles", Category: "Roles & Permissions"},
	{Key: PermRolesCreate, Description: "Create roles", Category: "Roles & Permissions"},
	{Key: PermRolesUpdate, Description: "Edit roles", Category: "Roles & Permissions"},
	{Key: PermRolesDelete, Description: "Delete roles", Category: "Roles & Permissions"},
	{Key: PermPermissionsRead, Description: "View permission catalog", Category: "Roles & Permissions"},

	{Key: PermAppGrantsRead, Description: "View app access grants", Category: "App Access"},
	{Key: PermAppGrantsCreate, Description: "Grant app access", Category: "App Access"},
	{Key: PermAppGrantsUpdate, Description: "Edit app access grants", Category: "App Access"},
	{Key: PermAppGrantsDelete, Description: "Revoke app access", Category: "App Access"},

	{Key: PermInventoryRead, Description: "View inventory", Category: "Inventory"},
	{Key: PermInventoryCreate, Description: "Check in inventory", Category: "Inventory"},
	{Key: PermInventoryUpdate, Description: "Edit inventory items", Category: "Inventory"},
	{Key: PermInventoryDelete, Description: "Remove inventory items", Category: "Inventory"},

	{Key: PermProjectsRead, Description: "View projects", Category: "Projects"},
	{Key: PermProjectsCreate, Description: "Create projects", Category: "Projects"},
	{Key: PermProjectsUpdate, Description: "Edit projects", Category: "Projects"},
	{Key: PermProjectsDelete, Description: "Delete projects", Category: "Projects"},

	{Key: PermUploadsCreate, Description: "Upload images", Category: "Uploads"},
}
