package auth

// Role is the access tier carried in a token.
type Role string

const (
	// RoleViewer may read points, health and the scrape stream.
	RoleViewer Role = "viewer"

	// RoleOperator may also write and revert points and trigger scrapes.
	RoleOperator Role = "operator"

	// RoleAdmin may also edit the config store and reload the device.
	RoleAdmin Role = "admin"
)

// Permission is a named capability checked by the REST API.
type Permission string

const (
	PermPointsRead   Permission = "points:read"
	PermPointsWrite  Permission = "points:write"
	PermConfigManage Permission = "config:manage"
)

// rolePermissions is the whole authorisation model.
var rolePermissions = map[Role][]Permission{
	RoleViewer:   {PermPointsRead},
	RoleOperator: {PermPointsRead, PermPointsWrite},
	RoleAdmin:    {PermPointsRead, PermPointsWrite, PermConfigManage},
}

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := rolePermissions[r]; !ok {
		return "", ErrInvalidRole
	}
	return r, nil
}

// HasPermission reports whether role grants perm. Unknown roles grant
// nothing.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}
