package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/tallerhub/tallerhub"
	"github.com/tallerhub/tallerhub/config"
	httpx "github.com/tallerhub/tallerhub/internal/http"
)

const (
	shutdownTimeout = 10 * time.Second
	// requestGrace lets ordinary requests finish before long-lived streams are cut.
	requestGrace = 2 * time.Second
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Health   map[string]httpx.Pinger
	Logger   *slog.Logger
}

// HTTPServer is the configured server plus the cancel for its request contexts.
type HTTPServer struct {
	*http.Server
	cancelRequests context.CancelFunc
}

// NewHTTPServer builds the router and server without starting it.
func NewHTTPServer(cfg *HTTPServerConfig) (*HTTPServer, error) {
	if cfg == nil || cfg.Config == nil {
		return nil, errors.New("http server config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config

	templates, static, err := frontendFS(appCfg.IsDev)
	if err != nil {
		return nil, err
	}
	renderer, err := httpx.NewTemplateRenderer(httpx.TemplateRendererConfig{
		TemplateFS: templates,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	svc := cfg.Services
	if svc.Auth == nil || svc.Shell == nil {
		return nil, errors.New("http server requires auth and shell services")
	}
	routes := httpx.RouterServices{
		Auth:          svc.Auth,
		Shell:         svc.Shell,
		Kanban:        svc.Kanban,
		Tenants:       svc.Tenants,
		Renderer:      renderer,
		StaticFS:      static,
		Health:        cfg.Health,
		CookieDomain:  appCfg.HTTP.CookieDomain,
		SecureCookies: appCfg.HTTP.SecureCookies(),
		LoginRate:     rate.Limit(appCfg.HTTP.LoginRate),
		LoginBurst:    appCfg.HTTP.LoginBurst,
		Logger:        logger,
	}
	if appCfg.Metrics.Enabled {
		routes.Metrics = svc.Metrics
		routes.MetricsPath = appCfg.Metrics.Path
	}

	addr := appCfg.HTTP.Addr
	if addr == "" {
		addr = ":8080"
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	return &HTTPServer{
		Server: &http.Server{
			Addr:              addr,
			Handler:           httpx.NewRouter(routes),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			// Page and API handlers finish well inside this; the shell event
			// stream clears its own write deadline.
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
			BaseContext:  func(net.Listener) context.Context { return baseCtx },
		},
		cancelRequests: cancel,
	}, nil
}

// frontendFS returns the template and static trees. Development reads them
// from disk so edits show up on restart without a rebuild.
func frontendFS(isDev bool) (fs.FS, fs.FS, error) {
	var templateRoot, staticRoot fs.FS = tallerhub.TemplateFS, tallerhub.StaticFS
	if isDev {
		if _, err := os.Stat("frontend/templates"); err == nil {
			templateRoot, staticRoot = os.DirFS("."), os.DirFS(".")
		}
	}
	templates, err := fs.Sub(templateRoot, "frontend/templates")
	if err != nil {
		return nil, nil, fmt.Errorf("templates fs: %w", err)
	}
	static, err := fs.Sub(staticRoot, "frontend/static")
	if err != nil {
		return nil, nil, fmt.Errorf("static fs: %w", err)
	}
	return templates, static, nil
}

// Start blocks until the server stops. A graceful shutdown is not an error.
func (s *HTTPServer) Start(logger *slog.Logger) error {
	logger.Info("starting HTTP server", "addr", s.Addr)
	if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop drains the server. Requests still running after a short grace
// period, such as shell event streams, are cancelled so draining can finish.
// ctx may already be cancelled; only its values are used.
func (s *HTTPServer) Stop(ctx context.Context, logger *slog.Logger) error {
	logger.Info("shutting down HTTP server")

	grace := time.AfterFunc(requestGrace, s.cancelRequests)
	defer grace.Stop()
	defer s.cancelRequests()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	logger.Info("HTTP server stopped")
	return nil
}

// redisPinger adapts a Redis client to the health check interface.
func redisPinger(client redis.UniversalClient) httpx.Pinger {
	return httpx.PingerFunc(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}
