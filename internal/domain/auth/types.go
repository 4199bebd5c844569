package auth

// Package auth contains domain-level types for identities, sessions and shop roles.
// It is pure and free of framework/adapter concerns.

import (
	"slices"
	"time"
)

// Role is the authorization role assigned to an identity at provisioning time.
// The string form is the application-facing name; stored names differ (see StoredName).
type Role string

const (
	RoleShopWorker Role = "shop_worker"
	RoleShopAdmin  Role = "shop_admin"
	RoleInsurer    Role = "insurer"
	RoleSuperAdmin Role = "super_admin"
)

// storedRoles maps the persisted role-assignment values to roles.
var storedRoles = map[string]Role{
	"taller":       RoleShopWorker,
	"admin_taller": RoleShopAdmin,
	"aseguradora":  RoleInsurer,
	"super_admin":  RoleSuperAdmin,
}

// AllRoles returns every role in a stable order.
func AllRoles() []Role {
	return []Role{RoleShopWorker, RoleShopAdmin, RoleInsurer, RoleSuperAdmin}
}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	return slices.Contains(AllRoles(), r)
}

// StoredName returns the value persisted in the role-assignment table.
func (r Role) StoredName() string {
	for name, role := range storedRoles {
		if role == r {
			return name
		}
	}
	return ""
}

// ParseStoredRole maps a persisted role value to a Role.
func ParseStoredRole(s string) (Role, bool) {
	r, ok := storedRoles[s]
	return r, ok
}

// ExemptFromTrial reports whether the role bypasses trial-subscription gating.
func (r Role) ExemptFromTrial() bool {
	return r == RoleInsurer || r == RoleSuperAdmin
}

// Identity represents the authenticated principal returned by an IdP or bearer token.
// Adapters map provider-specific claims into this shape.
type Identity struct {
	UserID    string // stable user identifier (OIDC sub or JWT sub)
	FirstName string
	LastName  string
	Email     string
	ExpiresAt time.Time // absolute expiry from IdP token
}

// Session is the server-side record we persist for an authenticated user.
// Role and tenant are not cached here; they are resolved from the role assignment on use.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Identity returns the identity carried by the session.
func (s Session) Identity() Identity {
	return Identity{
		UserID:    s.UserID,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Email:     s.Email,
		ExpiresAt: s.ExpiresAt,
	}
}

// DisplayName returns a human-friendly label for headers.
func (s Session) DisplayName() string {
	switch {
	case s.FirstName != "" && s.LastName != "":
		return s.FirstName + " " + s.LastName
	case s.FirstName != "":
		return s.FirstName
	case s.Email != "":
		return s.Email
	default:
		return s.UserID
	}
}

// Assignment is the persisted role-assignment record keyed by user id.
type Assignment struct {
	UserID   string
	Role     string  // stored role name
	TenantID *string // nil for roles not scoped to a shop
}

// Access is the output of session resolution: the caller's role and shop.
// Both fields are nil when unauthenticated or when no assignment exists.
type Access struct {
	Role     *Role
	TenantID *string
}

// HasRole reports whether a role was resolved.
func (a Access) HasRole() bool { return a.Role != nil }

// RoleOrEmpty returns the resolved role or the empty string.
func (a Access) RoleOrEmpty() Role {
	if a.Role == nil {
		return ""
	}
	return *a.Role
}

// Equal compares two access values by content.
func (a Access) Equal(b Access) bool {
	return ptrEqual(a.Role, b.Role) && ptrEqual(a.TenantID, b.TenantID)
}

func ptrEqual[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
