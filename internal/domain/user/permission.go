package user

type Permission string

const (
	PermissionPresenceView     Permission = "presence.view"
	PermissionPresenceCheckout Permission = "presence.checkout"
	PermissionVisitorView      Permission = "visitor.view"
	PermissionVisitorCheckIn   Permission = "visitor.check_in"
	PermissionVisitorCheckout  Permission = "visitor.checkout"
	PermissionErrorsView       Permission = "errors.view"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermissionPresenceView,
		PermissionPresenceCheckout,
		PermissionVisitorView,
		PermissionVisitorCheckIn,
		PermissionVisitorCheckout,
		PermissionErrorsView,
	},
	RoleViewer: {
		PermissionPresenceView,
		PermissionVisitorView,
		PermissionVisitorCheckIn,
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}

	return false
}
