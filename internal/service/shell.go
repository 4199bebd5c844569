package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	domainauth "github.com/tallerhub/tallerhub/internal/domain/auth"
	"github.com/tallerhub/tallerhub/internal/domain/change"
	"github.com/tallerhub/tallerhub/internal/domain/subscription"
	"github.com/tallerhub/tallerhub/internal/observability/metrics"
)

// AccessResolver resolves an identity to role and shop.
type AccessResolver interface {
	Resolve(ctx context.Context, identity *domainauth.Identity) (domainauth.Access, bool)
}

// StatusResolver resolves the subscription state for an access.
type StatusResolver interface {
	Resolve(ctx context.Context, access domainauth.Access) (subscription.Resolution, bool)
}

// ShellState is everything the layout needs to render chrome and gating.
type ShellState struct {
	Access       domainauth.Access
	Subscription subscription.Resolution
	ShowModal    bool
}

// Equal reports whether two states render identically.
func (s ShellState) Equal(o ShellState) bool {
	return s.Access.Equal(o.Access) &&
		s.ShowModal == o.ShowModal &&
		s.Subscription.Status == o.Subscription.Status &&
		s.Subscription.Idle == o.Subscription.Idle &&
		intPtrEqual(s.Subscription.DaysRemaining, o.Subscription.DaysRemaining)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// initialShellState is the state before any resolution completes: no role, idle.
func initialShellState() ShellState {
	return ShellState{Subscription: subscription.IdleResolution()}
}

// ShellServiceOptions groups dependencies for ShellService.
type ShellServiceOptions struct {
	Sessions AccessResolver // Required
	Statuses StatusResolver // Required
	// Tenants signals tenant-scoped table changes; SessionEvents signals per-user
	// login and logout. Both optional; without them watchers never refresh.
	Tenants            *change.Hub[change.Key]
	SessionEvents      *change.Hub[string]
	ModalThresholdDays int
	Logger             *slog.Logger
	Metrics            *metrics.Registry
}

// ShellService resolves shell state for page renders and live streams.
type ShellService struct {
	sessions      AccessResolver
	statuses      StatusResolver
	tenants       *change.Hub[change.Key]
	sessionEvents *change.Hub[string]
	threshold     int
	logger        *slog.Logger
	metrics       *metrics.Registry
}

// NewShellService constructs a ShellService.
func NewShellService(opts ShellServiceOptions) (*ShellService, error) {
	if opts.Sessions == nil || opts.Statuses == nil {
		return nil, errors.New("session and status resolvers are required")
	}
	threshold := opts.ModalThresholdDays
	if threshold <= 0 {
		threshold = subscription.DefaultModalThresholdDays
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ShellService{
		sessions:      opts.Sessions,
		statuses:      opts.Statuses,
		tenants:       opts.Tenants,
		sessionEvents: opts.SessionEvents,
		threshold:     threshold,
		logger:        logger.With("component", "shell"),
		metrics:       opts.Metrics,
	}, nil
}

// ModalThresholdDays returns the configured trial warning window.
func (s *ShellService) ModalThresholdDays() int { return s.threshold }

// Resolve performs one full resolution for a page render.
func (s *ShellService) Resolve(ctx context.Context, identity *domainauth.Identity) ShellState {
	st, _ := s.read(ctx, identity).apply(initialShellState(), s.threshold)
	return st
}

// shellRead is the raw outcome of one pass over both resolvers. It is merged
// into whatever state is current when the result is applied.
type shellRead struct {
	access   domainauth.Access
	accessOK bool
	sub      subscription.Resolution
	subOK    bool
}

func (s *ShellService) read(ctx context.Context, identity *domainauth.Identity) shellRead {
	access, ok := s.sessions.Resolve(ctx, identity)
	if !ok {
		return shellRead{}
	}
	r := shellRead{access: access, accessOK: true}
	r.sub, r.subOK = s.statuses.Resolve(ctx, access)
	return r
}

// apply merges r into prev. Fields whose read failed keep their value from
// prev; the bool is false when the access read failed and prev is returned as is.
func (r shellRead) apply(prev ShellState, threshold int) (ShellState, bool) {
	if !r.accessOK {
		return prev, false
	}
	next := prev
	next.Access = r.access
	switch {
	case r.subOK:
		next.Subscription = r.sub
	case !r.access.Equal(prev.Access):
		// The previous status belonged to another shop.
		next.Subscription = subscription.IdleResolution()
	}
	next.ShowModal = subscription.ShowExpiryModal(r.access.Role, next.Subscription, threshold)
	return next, true
}

// Watch creates a watcher for identity. Run it once per live connection.
func (s *ShellService) Watch(identity *domainauth.Identity) *ShellWatcher {
	return &ShellWatcher{svc: s, identity: identity}
}

// ShellWatcher keeps one connection's shell state current. Every resolution is
// stamped with a sequence number and a result is applied only if it is newer
// than the last applied one, so a slow early read can never overwrite a later one.
type ShellWatcher struct {
	svc      *ShellService
	identity *domainauth.Identity
	stale    atomic.Uint64
}

// Stale returns how many resolutions were discarded as out of date.
func (w *ShellWatcher) Stale() uint64 { return w.stale.Load() }

type stampedRead struct {
	seq  uint64
	read shellRead
}

// Run resolves immediately and again whenever the user's session or shop
// changes, calling emit with each distinct state. It returns nil when ctx ends;
// every subscription it opened is released before it returns.
func (w *ShellWatcher) Run(ctx context.Context, emit func(ShellState)) error {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	var userCh <-chan struct{}
	if w.svc.sessionEvents != nil && w.identity != nil && w.identity.UserID != "" {
		unsub, ch := w.svc.sessionEvents.Subscribe(w.identity.UserID)
		defer unsub()
		userCh = ch
	}

	tenantSubs := &tenantSubscription{hub: w.svc.tenants}
	defer tenantSubs.close()

	var (
		seq     uint64
		applied uint64
		current = initialShellState()
		emitted bool
		results = make(chan stampedRead)
	)

	launch := func() {
		seq++
		stamp := seq
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := w.svc.read(ctx, w.identity)
			select {
			case results <- stampedRead{seq: stamp, read: r}:
			case <-ctx.Done():
			}
		}()
	}

	launch()
	for {
		select {
		case <-ctx.Done():
			return nil

		case _, ok := <-userCh:
			if !ok {
				userCh = nil
				continue
			}
			launch()

		case _, ok := <-tenantSubs.tenantCh:
			if !ok {
				tenantSubs.tenantCh = nil
				continue
			}
			launch()

		case _, ok := <-tenantSubs.rolesCh:
			if !ok {
				tenantSubs.rolesCh = nil
				continue
			}
			launch()

		case r := <-results:
			if r.seq <= applied {
				w.stale.Add(1)
				w.svc.metrics.StaleDiscarded()
				continue
			}
			applied = r.seq
			next, ok := r.read.apply(current, w.svc.threshold)
			if !ok {
				continue
			}
			tenantSubs.follow(next.Access.TenantID)
			if emitted && next.Equal(current) {
				continue
			}
			current = next
			emitted = true
			emit(current)
		}
	}
}

// tenantSubscription tracks the hub subscriptions for the shop currently shown.
type tenantSubscription struct {
	hub      *change.Hub[change.Key]
	tenant   string
	tenantCh <-chan struct{}
	rolesCh  <-chan struct{}
	unsubs   []func()
}

// follow moves the subscriptions to tenantID; nil drops them.
func (t *tenantSubscription) follow(tenantID *string) {
	next := ""
	if tenantID != nil {
		next = *tenantID
	}
	if t.hub == nil || next == t.tenant {
		return
	}
	t.close()
	t.tenant = next
	if next == "" {
		return
	}
	u1, ch1 := t.hub.Subscribe(change.Key{Table: change.TableTenants, TenantID: next})
	u2, ch2 := t.hub.Subscribe(change.Key{Table: change.TableRoleAssignments, TenantID: next})
	t.tenantCh, t.rolesCh = ch1, ch2
	t.unsubs = []func(){u1, u2}
}

func (t *tenantSubscription) close() {
	for _, u := range t.unsubs {
		u()
	}
	t.unsubs = nil
	t.tenant = ""
	t.tenantCh, t.rolesCh = nil, nil
}
