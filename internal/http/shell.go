package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tallerhub/tallerhub/internal/domain/access"
	domainauth "github.com/tallerhub/tallerhub/internal/domain/auth"
	"github.com/tallerhub/tallerhub/internal/domain/kanban"
	"github.com/tallerhub/tallerhub/internal/domain/subscription"
	"github.com/tallerhub/tallerhub/internal/observability/metrics"
	"github.com/tallerhub/tallerhub/internal/service"
)

const defaultHeartbeat = 25 * time.Second

// ShellResolver is the part of ShellService the HTTP layer uses.
type ShellResolver interface {
	Resolve(ctx context.Context, identity *domainauth.Identity) service.ShellState
	Watch(identity *domainauth.Identity) *service.ShellWatcher
	ModalThresholdDays() int
}

// KanbanReader loads the board for the kanban page.
type KanbanReader interface {
	Board(ctx context.Context, access domainauth.Access) (kanban.Board, error)
}

// ShellHandlers renders the application shell: layout, sidebar, guarded content,
// the trial-expiry modal and its live update stream.
type ShellHandlers struct {
	Shell    ShellResolver
	Kanban   KanbanReader
	Renderer *TemplateRenderer
	Metrics  *metrics.Registry
	Logger   *slog.Logger
	// Heartbeat is the SSE keep-alive interval; zero uses 25s.
	Heartbeat time.Duration
}

func (h *ShellHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Guard resolves the caller's shell state and evaluates the route permission
// table for the request path. Denied browser requests see the restricted
// placeholder inside the shell with status 200; denied API requests get 403.
// Unmapped paths are denied for every role.
func (h *ShellHandlers) Guard(next http.Handler) http.Handler {
	return h.guard(func(r *http.Request) string { return r.URL.Path }, next)
}

// GuardRoute is Guard for endpoints that act on behalf of a shell route, such
// as the kanban API guarded by the /kanban entry.
func (h *ShellHandlers) GuardRoute(path string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return h.guard(func(*http.Request) string { return path }, next)
	}
}

func (h *ShellHandlers) guard(pathOf func(*http.Request) string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, _ := GetIdentityFromContext(r.Context())
		st := h.Shell.Resolve(r.Context(), identity)
		r = r.WithContext(SetShellStateInContext(r.Context(), st))

		d := access.Decide(st.Access.Role, pathOf(r))
		h.Metrics.GuardDecision(guardRouteLabel(d), d.Allowed)
		if d.Allowed {
			next.ServeHTTP(w, r)
			return
		}

		h.logger().DebugContext(r.Context(), "route denied",
			"path", d.Path,
			"mapped", d.Mapped,
			"role", string(st.Access.RoleOrEmpty()),
		)
		if !IsBrowserRequest(r) {
			WriteError(w, ErrorParams{
				Code:    http.StatusForbidden,
				ErrCode: "access_restricted",
				Err:     errors.New("access restricted"),
			})
			return
		}
		h.render(w, r, PageMeta{Title: "Acceso restringido", Path: d.Path, Content: contentRestricted}, st, nil)
	})
}

// guardRouteLabel keeps metric cardinality bounded to the table's paths.
func guardRouteLabel(d access.Decision) string {
	if !d.Mapped {
		return "unmapped"
	}
	return d.Path
}

// Home sends the user to the first route their role may see.
// GET /{$}.
func (h *ShellHandlers) Home(w http.ResponseWriter, r *http.Request) {
	identity, _ := GetIdentityFromContext(r.Context())
	st := h.Shell.Resolve(r.Context(), identity)
	target := access.HomePath(st.Access.Role)
	if target == "" {
		target = "/dashboard"
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// Page renders a guarded route. It runs behind Guard.
func (h *ShellHandlers) Page(w http.ResponseWriter, r *http.Request) {
	st, _ := GetShellStateFromContext(r.Context())
	route, _ := access.Lookup(r.URL.Path)
	meta := PageMeta{Title: route.Title, Path: route.Path, Content: contentPlaceholder}
	h.render(w, r, meta, st, nil)
}

// KanbanPage renders the work-order board for the caller's shop.
// GET /kanban, behind Guard.
func (h *ShellHandlers) KanbanPage(w http.ResponseWriter, r *http.Request) {
	st, _ := GetShellStateFromContext(r.Context())
	route, _ := access.Lookup("/kanban")
	meta := PageMeta{Title: route.Title, Path: route.Path, Content: contentKanban}

	extra := map[string]any{}
	if h.Kanban != nil && st.Access.TenantID != nil {
		board, err := h.Kanban.Board(r.Context(), st.Access)
		if err != nil {
			h.logger().ErrorContext(r.Context(), "load kanban board failed", "error", err)
			extra["BoardError"] = "No se pudo cargar el tablero."
		} else {
			extra["Board"] = board
		}
	}
	h.render(w, r, meta, st, extra)
}

func (h *ShellHandlers) render(w http.ResponseWriter, r *http.Request, meta PageMeta, st service.ShellState, extra map[string]any) {
	b := NewTemplateData(r, meta).WithShell(st, h.Shell.ModalThresholdDays())
	for k, v := range extra {
		b.With(k, v)
	}
	data := b.Build()

	var err error
	if WantsPartial(r) {
		err = h.Renderer.RenderPartial(w, data)
	} else {
		err = h.Renderer.RenderFull(w, data)
	}
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// shellEvent is the payload pushed to open pages.
type shellEvent struct {
	Role          string              `json:"role,omitempty"`
	Status        subscription.Status `json:"status,omitempty"`
	DaysRemaining *int                `json:"daysRemaining"`
	ShowModal     bool                `json:"showModal"`
	Idle          bool                `json:"idle"`
}

func newShellEvent(st service.ShellState) shellEvent {
	return shellEvent{
		Role:          string(st.Access.RoleOrEmpty()),
		Status:        st.Subscription.Status,
		DaysRemaining: st.Subscription.DaysRemaining,
		ShowModal:     st.ShowModal,
		Idle:          st.Subscription.Idle,
	}
}

// Events streams shell state changes as server-sent events. The watcher's
// subscriptions live exactly as long as the request.
// GET /events/shell.
func (h *ShellHandlers) Events(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// Long-lived; the server's write timeout would cut the stream.
	_ = rc.SetWriteDeadline(time.Time{})
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.logger().WarnContext(r.Context(), "streaming unsupported", "error", err)
		return
	}

	h.Metrics.StreamOpened()
	defer h.Metrics.StreamClosed()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	identity, _ := GetIdentityFromContext(ctx)
	watcher := h.Shell.Watch(identity)

	// Latest state wins; the single producer drains before sending.
	updates := make(chan service.ShellState, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = watcher.Run(ctx, func(st service.ShellState) {
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- st:
			case <-ctx.Done():
			}
		})
	}()
	defer func() {
		cancel()
		<-done
	}()

	heartbeat := h.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case st := <-updates:
			if err := writeSSE(w, "shell", newShellEvent(st)); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeSSE(w http.ResponseWriter, event string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b)
	return err
}
