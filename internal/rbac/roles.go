package rbac

// Role names are part of the token contract; keep them stable.
const (
	RoleOwner      = "owner"
	RoleBroker     = "broker"
	RoleViewer     = "viewer"
	RoleSuperAdmin = "super_admin"
)

// Writers may mutate leads, rules and settings.
var Writers = []string{RoleOwner, RoleBroker}

// Readers may call every read endpoint.
var Readers = []string{RoleOwner, RoleBroker, RoleViewer}

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

func IsKnown(role string) bool {
	switch role {
	case RoleOwner, RoleBroker, RoleViewer, RoleSuperAdmin:
		return true
	default:
		return false
	}
}
