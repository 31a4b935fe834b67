package shared

// Core platform permissions.
const (
	// PermUserManage lets a non-admin actor manage accounts other than
	// their own.
	PermUserManage = "user.manage"

	PermUserView = "user.view"
	PermUserEdit = "user.edit"

	PermRoleView       = "role.view"
	PermPermissionView = "permission.view"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermUserManage,
		PermUserView,
		PermUserEdit,
		PermRoleView,
		PermPermissionView,
	}
}
