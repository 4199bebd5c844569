// Package access holds the static route permission table and the guard predicate
// that decides whether a role may see a route's content.
package access

import (
	"slices"

	"github.com/tallerhub/tallerhub/internal/domain/auth"
)

// RoleSet is an immutable set of roles.
type RoleSet map[auth.Role]struct{}

// NewRoleSet builds a set from roles.
func NewRoleSet(roles ...auth.Role) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

// Contains reports membership. A nil set contains nothing.
func (s RoleSet) Contains(r auth.Role) bool {
	_, ok := s[r]
	return ok
}

// Roles returns the members in AllRoles order.
func (s RoleSet) Roles() []auth.Role {
	out := make([]auth.Role, 0, len(s))
	for _, r := range auth.AllRoles() {
		if s.Contains(r) {
			out = append(out, r)
		}
	}
	return out
}

// Section groups routes in the sidebar.
type Section string

const (
	SectionOperations Section = "operaciones"
	SectionCommercial Section = "comercial"
	SectionInsurance  Section = "seguros"
	SectionShop       Section = "taller"
	SectionPlatform   Section = "plataforma"
)

// Route is one entry of the permission table.
type Route struct {
	Path    string
	Title   string
	Section Section
	Roles   RoleSet
}

var (
	worker  = auth.RoleShopWorker
	admin   = auth.RoleShopAdmin
	insurer = auth.RoleInsurer
	super   = auth.RoleSuperAdmin
)

// routes is the compiled-in permission table, in sidebar order.
var routes = []Route{
	{"/dashboard", "Dashboard", SectionOperations, NewRoleSet(worker, admin, insurer, super)},
	{"/kanban", "Tablero", SectionOperations, NewRoleSet(worker, admin, super)},
	{"/ordenes", "Órdenes", SectionOperations, NewRoleSet(worker, admin, super)},
	{"/hoja-ingreso", "Hoja de ingreso", SectionOperations, NewRoleSet(worker, admin, super)},
	{"/vehiculos", "Vehículos", SectionOperations, NewRoleSet(worker, admin, super)},
	{"/reparaciones", "Reparaciones", SectionOperations, NewRoleSet(worker, admin, super)},
	{"/citas", "Citas", SectionOperations, NewRoleSet(worker, admin, super)},
	{"/inventario", "Inventario", SectionOperations, NewRoleSet(worker, admin, super)},
	{"/mensajes", "Mensajes", SectionOperations, NewRoleSet(worker, admin, insurer, super)},
	{"/clientes", "Clientes", SectionCommercial, NewRoleSet(admin, super)},
	{"/flotas", "Flotas", SectionCommercial, NewRoleSet(admin, super)},
	{"/cotizaciones", "Cotizaciones", SectionCommercial, NewRoleSet(admin, insurer, super)},
	{"/facturacion", "Facturación", SectionCommercial, NewRoleSet(admin, super)},
	{"/servicios", "Servicios", SectionCommercial, NewRoleSet(admin, super)},
	{"/paquetes", "Paquetes", SectionCommercial, NewRoleSet(admin, super)},
	{"/siniestros", "Siniestros", SectionInsurance, NewRoleSet(admin, insurer, super)},
	{"/reportes", "Reportes", SectionShop, NewRoleSet(admin, super)},
	{"/tecnicos", "Técnicos", SectionShop, NewRoleSet(admin, super)},
	{"/equipo", "Equipo", SectionShop, NewRoleSet(admin, super)},
	{"/accesos", "Accesos", SectionShop, NewRoleSet(admin, super)},
	{"/configuraciones", "Configuraciones", SectionShop, NewRoleSet(admin, super)},
	{"/talleres", "Talleres", SectionPlatform, NewRoleSet(super)},
	{"/usuarios", "Usuarios", SectionPlatform, NewRoleSet(super)},
	{"/solicitudes", "Solicitudes", SectionPlatform, NewRoleSet(super)},
	{"/aseguradoras", "Aseguradoras", SectionPlatform, NewRoleSet(super)},
}

var byPath = func() map[string]Route {
	m := make(map[string]Route, len(routes))
	for _, r := range routes {
		m[r.Path] = r
	}
	return m
}()

// Routes returns the permission table in sidebar order.
func Routes() []Route {
	return slices.Clone(routes)
}

// Lookup returns the table entry for path.
func Lookup(path string) (Route, bool) {
	r, ok := byPath[path]
	return r, ok
}

// AllowedRoles returns the roles permitted on path.
// Unknown paths yield an empty set, so nothing is allowed.
func AllowedRoles(path string) RoleSet {
	r, ok := byPath[path]
	if !ok {
		return RoleSet{}
	}
	return r.Roles
}

// Visible returns the routes role may render, in sidebar order.
func Visible(role *auth.Role) []Route {
	var out []Route
	for _, r := range routes {
		if CanRender(role, r.Roles) {
			out = append(out, r)
		}
	}
	return out
}

// HomePath returns the first route role may render, or "" when none.
func HomePath(role *auth.Role) string {
	if v := Visible(role); len(v) > 0 {
		return v[0].Path
	}
	return ""
}
