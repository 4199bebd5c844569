package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/tallerhub/tallerhub/config"
	"github.com/tallerhub/tallerhub/internal/data"
	"github.com/tallerhub/tallerhub/internal/domain/change"
	httpx "github.com/tallerhub/tallerhub/internal/http"
	"github.com/tallerhub/tallerhub/internal/observability/metrics"
	"github.com/tallerhub/tallerhub/internal/service"
)

// shutdownWaitTimeout bounds how long shutdown waits for in-flight expiry writes.
const shutdownWaitTimeout = 15 * time.Second

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Auth          *service.AuthService // nil unless the HTTP service is enabled
	Access        *service.SessionResolver
	Subscriptions *service.SubscriptionResolver
	Shell         *service.ShellService
	Kanban        *service.KanbanService
	Tenants       *service.TenantAdminService
	Sweeper       *service.TrialSweeper // nil unless the trial sweeper is enabled

	// Changes fans table notifications out to live shells; Pump feeds it.
	// Logins carries a user ID on every login and logout.
	Changes *change.Hub[change.Key]
	Logins  *change.Hub[string]
	Pump    *change.Pump

	Metrics *metrics.Registry
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	Assignments *data.RoleAssignmentRepo
	Tenants     *data.TenantRepo
	Orders      *data.WorkOrderRepo
}

func buildRepositories(db *sql.DB) serviceRepositories {
	return serviceRepositories{
		Assignments: data.NewRoleAssignmentRepo(db),
		Tenants:     data.NewTenantRepo(db),
		Orders:      data.NewWorkOrderRepo(db),
	}
}

// NewServices wires repositories, the change feed and every service the
// enabled modes need.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil || deps.DB == nil {
		return ServiceContainer{}, errors.New("services require config and database")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	enabled, err := cfg.GetEnabledServices()
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("determine enabled services: %w", err)
	}

	repos := buildRepositories(deps.DB)
	reg := metrics.New()

	feed, err := BuildChangeFeed(ChangeFeedDeps{
		Config:      cfg.ChangeFeed,
		DB:          deps.DB,
		RedisClient: deps.RedisClient,
		Logger:      logger,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	sc := ServiceContainer{
		Changes: change.NewHub[change.Key](),
		Logins:  change.NewHub[string](),
		Metrics: reg,
	}

	if sc.Subscriptions, err = service.NewSubscriptionResolver(service.SubscriptionResolverOptions{
		Tenants:      repos.Tenants,
		Publisher:    feed.Publisher,
		Logger:       logger,
		Metrics:      reg,
		FetchTimeout: cfg.Subscription.FetchTimeout,
		WriteTimeout: cfg.Subscription.WriteTimeout,
	}); err != nil {
		return ServiceContainer{}, fmt.Errorf("subscription resolver: %w", err)
	}

	if enabled[config.ServiceModeTrialSweeper] {
		if sc.Sweeper, err = service.NewTrialSweeper(service.TrialSweeperOptions{
			Tenants:   repos.Tenants,
			Publisher: feed.Publisher,
			Schedule:  cfg.TrialSweeper.Schedule,
			BatchSize: cfg.TrialSweeper.BatchSize,
			Logger:    logger,
			Metrics:   reg,
		}); err != nil {
			return ServiceContainer{}, fmt.Errorf("trial sweeper: %w", err)
		}
	}

	if !enabled[config.ServiceModeHTTP] {
		return sc, nil
	}

	if err := buildHTTPServices(&sc, deps, repos, feed, logger); err != nil {
		return ServiceContainer{}, err
	}
	return sc, nil
}

func buildHTTPServices(
	sc *ServiceContainer,
	deps *ServiceDeps,
	repos serviceRepositories,
	feed ChangeFeed,
	logger *slog.Logger,
) error {
	cfg := deps.Config
	var err error

	if sc.Auth, err = BuildAuthService(AuthConfig{
		Auth:          cfg.Auth,
		SessionPrefix: cfg.Redis.SessionPrefix,
		RedisClient:   deps.RedisClient,
		Events:        sc.Logins,
		Logger:        logger,
	}); err != nil {
		return err
	}

	if sc.Access, err = service.NewSessionResolver(service.SessionResolverOptions{
		Assignments: repos.Assignments,
		Logger:      logger,
		Metrics:     sc.Metrics,
	}); err != nil {
		return fmt.Errorf("session resolver: %w", err)
	}

	if sc.Shell, err = service.NewShellService(service.ShellServiceOptions{
		Sessions:           sc.Access,
		Statuses:           sc.Subscriptions,
		Tenants:            sc.Changes,
		SessionEvents:      sc.Logins,
		ModalThresholdDays: cfg.Subscription.ModalThresholdDays,
		Logger:             logger,
		Metrics:            sc.Metrics,
	}); err != nil {
		return fmt.Errorf("shell service: %w", err)
	}

	if sc.Kanban, err = service.NewKanbanService(service.KanbanServiceOptions{
		Orders:    repos.Orders,
		Publisher: feed.Publisher,
		Logger:    logger,
	}); err != nil {
		return fmt.Errorf("kanban service: %w", err)
	}

	if sc.Tenants, err = service.NewTenantAdminService(service.TenantAdminServiceOptions{
		Tenants:   repos.Tenants,
		Publisher: feed.Publisher,
		Logger:    logger,
	}); err != nil {
		return fmt.Errorf("tenant admin service: %w", err)
	}

	pumpLogger := logger.With("component", "change_pump")
	if sc.Pump, err = change.NewPump(change.PumpOptions{
		Source:  feed.Source,
		Hub:     sc.Changes,
		Backoff: cfg.ChangeFeed.Backoff,
		OnError: func(err error) {
			sc.Metrics.FeedError(err)
			pumpLogger.Warn("change feed disconnected; reconnecting", "error", err)
		},
		OnEvent: func(ev change.Event) {
			sc.Metrics.FeedEvent(ev.Table)
			pumpLogger.Debug("change received", "table", ev.Table, "tenant_id", ev.TenantID)
		},
	}); err != nil {
		return fmt.Errorf("change pump: %w", err)
	}
	return nil
}

// ServiceOrchestrationConfig contains everything needed to run the enabled services.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// backgroundService describes a startable component tied to a service mode.
type backgroundService struct {
	mode config.ServiceMode
	name string
	run  func(context.Context) error
}

func buildBackgroundServices(cfg *ServiceOrchestrationConfig) []backgroundService {
	svc := cfg.Services
	var out []backgroundService
	if svc.Pump != nil {
		out = append(out, backgroundService{mode: config.ServiceModeHTTP, name: "change pump", run: svc.Pump.Run})
	}
	if svc.Sweeper != nil {
		out = append(out, backgroundService{mode: config.ServiceModeTrialSweeper, name: "trial sweeper", run: svc.Sweeper.Run})
	}
	return out
}

// RunServicesWithShutdown starts all enabled services and blocks until a
// shutdown signal arrives or one of them fails.
func RunServicesWithShutdown(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("service orchestration config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	for _, bg := range buildBackgroundServices(cfg) {
		if !enabled[bg.mode] {
			continue
		}
		g.Go(func() error {
			logger.InfoContext(gctx, "background service started", "service", bg.name, "mode", bg.mode)
			if err := bg.run(gctx); err != nil {
				return fmt.Errorf("%s failed: %w", bg.name, err)
			}
			logger.InfoContext(gctx, bg.name+" stopped")
			return nil
		})
	}

	if enabled[config.ServiceModeHTTP] {
		server, err := NewHTTPServer(&HTTPServerConfig{
			Config:   cfg.Config,
			Services: cfg.Services,
			Health:   healthChecks(cfg),
			Logger:   logger,
		})
		if err != nil {
			return err
		}
		g.Go(func() error { return server.Start(logger) })
		g.Go(func() error {
			<-gctx.Done()
			return server.Stop(gctx, logger)
		})
	}

	err = g.Wait()
	if err != nil {
		logger.Error("service error", "error", err)
	} else {
		logger.Info("services stopped")
	}
	cfg.Services.close(logger)
	return err
}

func healthChecks(cfg *ServiceOrchestrationConfig) map[string]httpx.Pinger {
	checks := map[string]httpx.Pinger{}
	if cfg.DB != nil {
		checks["postgres"] = cfg.DB
	}
	if cfg.RedisClient != nil {
		checks["redis"] = redisPinger(cfg.RedisClient)
	}
	return checks
}

// close releases live subscribers and waits for lazy expiry writes.
func (sc ServiceContainer) close(logger *slog.Logger) {
	if sc.Changes != nil {
		sc.Changes.StopAll()
	}
	if sc.Logins != nil {
		sc.Logins.StopAll()
	}
	if sc.Subscriptions == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		sc.Subscriptions.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for trial expiry writes")
	}
}
