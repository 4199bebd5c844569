package tallerhub

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticFS_ShellScript(t *testing.T) {
	raw, err := StaticFS.ReadFile("frontend/static/js/shell.js")
	require.NoError(t, err)
	js := string(raw)

	drop := strings.Index(js, `addEventListener("drop"`)
	require.GreaterOrEqual(t, drop, 0, "kanban drop handler")
	handler := js[drop:]

	// The card moves before the request goes out and is put back on failure.
	move := strings.Index(handler, "list.appendChild(card)")
	patch := strings.Index(handler, `method: "PATCH"`)
	require.GreaterOrEqual(t, move, 0)
	require.GreaterOrEqual(t, patch, 0)
	assert.Less(t, move, patch)

	assert.Contains(t, handler, "res.status !== 409) return revert()")
	assert.Contains(t, handler, "reconcile(body.current)")
	assert.Contains(t, handler, "}, revert);")
}

func TestTemplateFS_Layout(t *testing.T) {
	entries, err := TemplateFS.ReadDir("frontend/templates")
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}
