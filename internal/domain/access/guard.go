package access

import "github.com/tallerhub/tallerhub/internal/domain/auth"

// CanRender reports whether role may see content guarded by allowed.
// A nil role is never allowed.
func CanRender(role *auth.Role, allowed RoleSet) bool {
	if role == nil {
		return false
	}
	return allowed.Contains(*role)
}

// Decision is the guard outcome for one route evaluation.
type Decision struct {
	Path    string
	Allowed bool
	// Mapped is false when the path has no table entry.
	Mapped bool
}

// Decide evaluates the guard for role on path.
func Decide(role *auth.Role, path string) Decision {
	_, mapped := Lookup(path)
	return Decision{
		Path:    path,
		Allowed: CanRender(role, AllowedRoles(path)),
		Mapped:  mapped,
	}
}
