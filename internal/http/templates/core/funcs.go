// Package core provides the template helpers shared by every shell page.
package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"time"

	domainauth "github.com/tallerhub/tallerhub/internal/domain/auth"
	"github.com/tallerhub/tallerhub/internal/domain/subscription"
)

// Deps holds dependencies for constructing the func map.
type Deps struct {
	// Template points at the parsed set so renderSection can execute named content.
	Template **template.Template
}

// Funcs returns the template.FuncMap used by the shell templates.
func Funcs(deps Deps) template.FuncMap {
	return template.FuncMap{
		"renderSection": renderSection(deps),
		"toJSON":        toJSON,
		"timeTag":       TimeTag,
		"roleLabel":     RoleLabel,
		"statusLabel":   StatusLabel,
		"daysLabel":     DaysLabel,
	}
}

func renderSection(deps Deps) func(string, any) (template.HTML, error) {
	return func(name string, data any) (template.HTML, error) {
		if deps.Template == nil || *deps.Template == nil {
			return "", errors.New("template not initialized")
		}
		var buf bytes.Buffer
		if err := (*deps.Template).ExecuteTemplate(&buf, name, data); err != nil {
			return "", err
		}
		// #nosec G203 - produced by html/template from our own set; values already escaped.
		return template.HTML(buf.String()), nil
	}
}

func toJSON(v any) (template.JS, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	// #nosec G203 - json.Marshal escapes <, > and & for script contexts.
	return template.JS(b), nil
}

// TimeTag renders a <time> element in local time with an RFC 3339 datetime.
func TimeTag(t time.Time) template.HTML {
	if t.IsZero() {
		return ""
	}
	// #nosec G203 - built from escaped, formatted values only.
	return template.HTML(fmt.Sprintf(`<time datetime="%s">%s</time>`,
		t.UTC().Format(time.RFC3339),
		template.HTMLEscapeString(t.Local().Format("02/01/2006 15:04")),
	))
}

// RoleLabel returns the Spanish label for a role.
func RoleLabel(r domainauth.Role) string {
	switch r {
	case domainauth.RoleShopWorker:
		return "Taller"
	case domainauth.RoleShopAdmin:
		return "Administrador de taller"
	case domainauth.RoleInsurer:
		return "Aseguradora"
	case domainauth.RoleSuperAdmin:
		return "Super administrador"
	default:
		return "Sin rol"
	}
}

// StatusLabel returns the Spanish label for a subscription status.
func StatusLabel(s subscription.Status) string {
	switch s {
	case subscription.StatusTrial:
		return "Prueba"
	case subscription.StatusActive:
		return "Activo"
	case subscription.StatusExpired:
		return "Expirado"
	default:
		return ""
	}
}

// DaysLabel describes the remaining trial days for the header badge.
func DaysLabel(days *int) string {
	switch {
	case days == nil:
		return ""
	case *days == 0:
		return "Tu prueba termina hoy"
	case *days == 1:
		return "Queda 1 día de prueba"
	default:
		return fmt.Sprintf("Quedan %d días de prueba", *days)
	}
}
