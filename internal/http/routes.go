package httpx

import (
	"io/fs"
	"log/slog"
	"net/http"
	"regexp"

	"golang.org/x/time/rate"

	"github.com/tallerhub/tallerhub/internal/domain/access"
	"github.com/tallerhub/tallerhub/internal/observability/metrics"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Auth     AuthServiceInterface // Required
	Shell    ShellResolver        // Required
	Kanban   KanbanAPI
	Tenants  TenantActivator
	Renderer *TemplateRenderer // Required
	// StaticFS is rooted at the static asset directory. Optional.
	StaticFS fs.FS
	Metrics  *metrics.Registry
	// MetricsPath exposes Metrics when both are set.
	MetricsPath string
	Health      map[string]Pinger

	CookieDomain  string
	SecureCookies bool
	LoginRate     rate.Limit
	LoginBurst    int
	Logger        *slog.Logger
}

// NewRouter creates the HTTP handler: ServeMux plus the middleware chain.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	shell := &ShellHandlers{
		Shell:    services.Shell,
		Kanban:   services.Kanban,
		Renderer: services.Renderer,
		Metrics:  services.Metrics,
		Logger:   logger,
	}
	api := &APIHandlers{
		Shell:   services.Shell,
		Kanban:  services.Kanban,
		Tenants: services.Tenants,
		Logger:  logger,
	}
	authHandlers := &AuthHandlers{
		Svc:          services.Auth,
		CookieDomain: services.CookieDomain,
		Secure:       services.SecureCookies,
		Renderer:     services.Renderer,
		Logger:       logger,
	}

	// GET also matches HEAD.
	mux.Handle("GET /healthz", healthHandler(services.Health))
	if services.Metrics != nil && services.MetricsPath != "" {
		mux.Handle("GET "+services.MetricsPath, services.Metrics.Handler())
	}
	if services.StaticFS != nil {
		mux.Handle("GET /static/", staticWithCacheHeaders(http.StripPrefix("/static/", http.FileServerFS(services.StaticFS))))
	}

	cfg := routeConfig{
		auth: RequireAuthBrowser(services.Auth),
		csrf: CSRFProtection(CSRFConfig{CookieDomain: services.CookieDomain, Secure: services.SecureCookies}),
		login: RateLimit(RateLimitConfig{
			Rate:    services.LoginRate,
			Burst:   services.LoginBurst,
			Logger:  logger,
			Metrics: services.Metrics,
		}),
	}
	registerAuthRoutes(mux, authHandlers, cfg)
	registerShellRoutes(mux, shell, cfg)
	registerAPIRoutes(mux, api, shell, cfg)

	var handler http.Handler = mux
	handler = Logging(logger, services.Metrics)(handler)
	handler = Recover(logger)(handler)
	handler = BrowserDetection()(handler)
	return RequestID()(handler)
}

// routeConfig carries the middleware shared by route groups.
type routeConfig struct {
	auth  func(http.Handler) http.Handler
	csrf  func(http.Handler) http.Handler
	login func(http.Handler) http.Handler
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers, cfg routeConfig) {
	mux.Handle("GET /auth/login", cfg.login(http.HandlerFunc(h.Login)))
	mux.Handle("GET /auth/callback", cfg.login(http.HandlerFunc(h.Callback)))
	mux.Handle("POST /auth/logout", cfg.csrf(http.HandlerFunc(h.Logout)))
	mux.HandleFunc("GET /auth/signed-out", h.SignedOut)
}

// registerShellRoutes mounts one guarded page per permission table entry.
// Anything else that reaches the catch-all is unmapped: browsers see the
// restricted placeholder, API clients a 404.
func registerShellRoutes(mux *http.ServeMux, h *ShellHandlers, cfg routeConfig) {
	page := func(next http.HandlerFunc) http.Handler {
		return cfg.auth(cfg.csrf(h.Guard(next)))
	}

	mux.Handle("GET /{$}", cfg.auth(http.HandlerFunc(h.Home)))
	for _, rt := range access.Routes() {
		handler := h.Page
		if rt.Path == "/kanban" {
			handler = h.KanbanPage
		}
		mux.Handle("GET "+rt.Path, page(handler))
	}
	mux.Handle("GET /events/shell", cfg.auth(http.HandlerFunc(h.Events)))

	unmapped := page(h.Page)
	mux.Handle("GET /", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsBrowserRequest(r) {
			WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found"})
			return
		}
		unmapped.ServeHTTP(w, r)
	}))
}

func registerAPIRoutes(mux *http.ServeMux, h *APIHandlers, shell *ShellHandlers, cfg routeConfig) {
	kanbanGuard := shell.GuardRoute("/kanban")
	tenantsGuard := shell.GuardRoute("/talleres")

	mux.Handle("GET /api/session", cfg.auth(http.HandlerFunc(h.Session)))
	if h.Kanban != nil {
		mux.Handle("GET /api/kanban", cfg.auth(kanbanGuard(http.HandlerFunc(h.Board))))
		mux.Handle("PATCH /api/kanban/orders/{id}", cfg.auth(cfg.csrf(kanbanGuard(http.HandlerFunc(h.MoveOrder)))))
	}
	if h.Tenants != nil {
		mux.Handle("POST /api/tenants/{id}/activate", cfg.auth(cfg.csrf(tenantsGuard(http.HandlerFunc(h.ActivateTenant)))))
	}
}

// hashedAsset matches content-hashed file names such as app.3f9a1c2b.css.
var hashedAsset = regexp.MustCompile(`\.[a-f0-9]{8}\.(?:js|css)(?:\.map)?$`)

// staticWithCacheHeaders caches hashed assets for a year and revalidates the rest.
func staticWithCacheHeaders(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hashedAsset.MatchString(r.URL.Path) {
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		} else {
			w.Header().Set("Cache-Control", "no-cache")
		}
		handler.ServeHTTP(w, r)
	})
}
