package httpx

import (
	"net/http"

	"github.com/tallerhub/tallerhub/internal/domain/access"
	domainauth "github.com/tallerhub/tallerhub/internal/domain/auth"
	"github.com/tallerhub/tallerhub/internal/service"
)

// Content template names.
const (
	contentPlaceholder = "placeholder-content"
	contentRestricted  = "restricted-content"
	contentKanban      = "kanban-content"
)

// PageMeta describes the page being rendered.
type PageMeta struct {
	Title string
	Path  string
	// Content names the template rendered inside the shell.
	Content string
}

// NavItem is one sidebar link.
type NavItem struct {
	Path   string
	Title  string
	Active bool
}

// NavSection groups sidebar links.
type NavSection struct {
	Label string
	Items []NavItem
}

var sectionLabels = map[access.Section]string{
	access.SectionOperations: "Operaciones",
	access.SectionCommercial: "Comercial",
	access.SectionInsurance:  "Seguros",
	access.SectionShop:       "Taller",
	access.SectionPlatform:   "Plataforma",
}

// navSections lists the routes role may render, grouped in table order.
func navSections(role *domainauth.Role, current string) []NavSection {
	var out []NavSection
	for _, rt := range access.Visible(role) {
		label := sectionLabels[rt.Section]
		if len(out) == 0 || out[len(out)-1].Label != label {
			out = append(out, NavSection{Label: label})
		}
		last := &out[len(out)-1]
		last.Items = append(last.Items, NavItem{Path: rt.Path, Title: rt.Title, Active: rt.Path == current})
	}
	return out
}

// TemplateDataBuilder provides a fluent API for building template data maps.
type TemplateDataBuilder struct {
	data map[string]any
}

// NewTemplateData starts a data map with the request-scoped basics.
func NewTemplateData(r *http.Request, meta PageMeta) *TemplateDataBuilder {
	content := meta.Content
	if content == "" {
		content = contentPlaceholder
	}
	return &TemplateDataBuilder{data: map[string]any{
		"Title":     meta.Title,
		"Path":      meta.Path,
		"Content":   content,
		"CSRFToken": GetCSRFToken(r),
		"RequestID": RequestIDFromContext(r.Context()),
		"User":      displayName(r),
	}}
}

// WithShell adds the sidebar, header and modal state.
func (b *TemplateDataBuilder) WithShell(st service.ShellState, thresholdDays int) *TemplateDataBuilder {
	b.data["Role"] = st.Access.RoleOrEmpty()
	b.data["HasRole"] = st.Access.HasRole()
	b.data["Nav"] = navSections(st.Access.Role, stringOf(b.data["Path"]))
	b.data["Subscription"] = st.Subscription
	b.data["ShowModal"] = st.ShowModal
	b.data["ThresholdDays"] = thresholdDays
	return b
}

// With sets an arbitrary key.
func (b *TemplateDataBuilder) With(key string, v any) *TemplateDataBuilder {
	b.data[key] = v
	return b
}

// Build returns the data map.
func (b *TemplateDataBuilder) Build() map[string]any { return b.data }

func displayName(r *http.Request) string {
	if s, ok := GetSessionFromContext(r.Context()); ok {
		return s.DisplayName()
	}
	if id, ok := GetIdentityFromContext(r.Context()); ok {
		if id.Email != "" {
			return id.Email
		}
		return id.UserID
	}
	return ""
}

func stringOf(v any) string {
	s, _ := v.(string)
	return s
}
