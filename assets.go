// Package tallerhub embeds the shell's templates and static assets.
package tallerhub

import "embed"

// In dev mode (IsDev=true) assets are read from disk for hot reloading;
// otherwise they are served from these embedded filesystems.

//go:embed all:frontend/static
var StaticFS embed.FS

//go:embed all:frontend/templates
var TemplateFS embed.FS
