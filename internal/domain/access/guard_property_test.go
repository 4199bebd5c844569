package access_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/tallerhub/tallerhub/internal/domain/access"
	"github.com/tallerhub/tallerhub/internal/domain/auth"
)

func genRole() gopter.Gen {
	roles := auth.AllRoles()
	return gen.IntRange(0, len(roles)-1).Map(func(i int) auth.Role { return roles[i] })
}

func genKnownPath() gopter.Gen {
	routes := access.Routes()
	return gen.IntRange(0, len(routes)-1).Map(func(i int) string { return routes[i].Path })
}

// Property: CanRender agrees with table membership for every role and mapped route.
func TestCanRenderMatchesTable(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("membership decides rendering", prop.ForAll(
		func(role auth.Role, path string) bool {
			entry, ok := access.Lookup(path)
			if !ok {
				return false
			}
			return access.CanRender(&role, access.AllowedRoles(path)) == entry.Roles.Contains(role)
		},
		genRole(),
		genKnownPath(),
	))

	properties.Property("unmapped paths deny every role", prop.ForAll(
		func(role auth.Role, suffix string) bool {
			path := "/x-" + suffix
			if _, ok := access.Lookup(path); ok {
				return true
			}
			return !access.CanRender(&role, access.AllowedRoles(path))
		},
		genRole(),
		gen.AlphaString(),
	))

	properties.Property("nil role never renders", prop.ForAll(
		func(roles []auth.Role) bool {
			return !access.CanRender(nil, access.NewRoleSet(roles...))
		},
		gen.SliceOf(genRole()),
	))

	properties.TestingRun(t)
}
