package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	domainauth "github.com/tallerhub/tallerhub/internal/domain/auth"
	"github.com/tallerhub/tallerhub/internal/domain/change"
	"github.com/tallerhub/tallerhub/internal/domain/subscription"
	"github.com/tallerhub/tallerhub/internal/observability/metrics"
	"github.com/tallerhub/tallerhub/internal/ports"
)

const (
	defaultFetchTimeout = 5 * time.Second
	defaultWriteTimeout = 10 * time.Second
)

// SubscriptionResolverOptions groups dependencies for SubscriptionResolver.
type SubscriptionResolverOptions struct {
	Tenants   ports.TenantStore     // Required
	Publisher ports.ChangePublisher // Optional: announces lazy expiries
	Logger    *slog.Logger
	Metrics   *metrics.Registry
	Now       func() time.Time
	// FetchTimeout bounds a shared tenant read; WriteTimeout bounds the expiry write.
	FetchTimeout time.Duration
	WriteTimeout time.Duration
}

// SubscriptionResolver derives a tenant's subscription status and days remaining,
// persisting the trial to expired transition lazily when the window has closed.
type SubscriptionResolver struct {
	tenants      ports.TenantStore
	publisher    ports.ChangePublisher
	logger       *slog.Logger
	metrics      *metrics.Registry
	now          func() time.Time
	fetchTimeout time.Duration
	writeTimeout time.Duration

	group   singleflight.Group
	pending sync.Map // tenant id -> struct{}, expiry writes in flight
	wg      sync.WaitGroup
}

// NewSubscriptionResolver constructs a SubscriptionResolver.
func NewSubscriptionResolver(opts SubscriptionResolverOptions) (*SubscriptionResolver, error) {
	if opts.Tenants == nil {
		return nil, errors.New("TenantStore is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &SubscriptionResolver{
		tenants:      opts.Tenants,
		publisher:    opts.Publisher,
		logger:       logger.With("component", "subscription_resolver"),
		metrics:      opts.Metrics,
		now:          opts.Now,
		fetchTimeout: opts.FetchTimeout,
		writeTimeout: opts.WriteTimeout,
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.fetchTimeout <= 0 {
		r.fetchTimeout = defaultFetchTimeout
	}
	if r.writeTimeout <= 0 {
		r.writeTimeout = defaultWriteTimeout
	}
	return r, nil
}

// Resolve returns the subscription state for access. Callers without a shop or
// with an exempt role get the idle resolution and no read is made. ok is false
// when the tenant could not be read; callers keep their previous value.
func (r *SubscriptionResolver) Resolve(ctx context.Context, access domainauth.Access) (subscription.Resolution, bool) {
	if access.TenantID == nil || (access.Role != nil && access.Role.ExemptFromTrial()) {
		r.metrics.Resolution("subscription", metrics.ResultIdle)
		return subscription.IdleResolution(), true
	}
	tenantID := *access.TenantID

	v, err, _ := r.group.Do(tenantID, func() (any, error) {
		// Shared by every waiter, so one caller's cancellation must not fail the rest.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.fetchTimeout)
		defer cancel()
		return r.tenants.GetSubscription(fetchCtx, tenantID)
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "tenant subscription read failed", "tenant_id", tenantID, "error", err)
		r.metrics.Resolution("subscription", metrics.ResultError)
		return subscription.Resolution{}, false
	}
	rec, ok := v.(*subscription.Record)
	if !ok || rec == nil {
		r.metrics.Resolution("subscription", metrics.ResultError)
		return subscription.Resolution{}, false
	}

	ev := subscription.Evaluate(*rec, r.now())
	if ev.Expire {
		r.expireAsync(ctx, tenantID)
	}
	r.metrics.Resolution("subscription", metrics.ResultOK)
	return subscription.FromEvaluation(ev), true
}

// expireAsync persists trial -> expired in the background. The resolution already
// reports expired, so the caller never waits on or observes the write.
func (r *SubscriptionResolver) expireAsync(ctx context.Context, tenantID string) {
	if _, loaded := r.pending.LoadOrStore(tenantID, struct{}{}); loaded {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.pending.Delete(tenantID)

		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.writeTimeout)
		defer cancel()

		changed, err := r.tenants.MarkExpired(writeCtx, tenantID)
		r.metrics.ExpiryWrite(changed, err)
		if err != nil {
			r.logger.ErrorContext(writeCtx, "persist trial expiry failed", "tenant_id", tenantID, "error", err)
			return
		}
		if !changed {
			return
		}
		r.logger.InfoContext(writeCtx, "trial expired", "tenant_id", tenantID)
		if r.publisher != nil {
			ev := change.Event{Table: change.TableTenants, TenantID: tenantID}
			if err := r.publisher.Publish(writeCtx, ev); err != nil {
				r.logger.WarnContext(writeCtx, "publish trial expiry failed", "tenant_id", tenantID, "error", err)
			}
		}
	}()
}

// Wait blocks until background expiry writes finish.
func (r *SubscriptionResolver) Wait() { r.wg.Wait() }
