package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/tallerhub/tallerhub/internal/domain/auth"
	"github.com/tallerhub/tallerhub/internal/domain/change"
	"github.com/tallerhub/tallerhub/internal/domain/subscription"
)

type accessFunc func(ctx context.Context, id *domainauth.Identity) (domainauth.Access, bool)

func (f accessFunc) Resolve(ctx context.Context, id *domainauth.Identity) (domainauth.Access, bool) {
	return f(ctx, id)
}

type statusFunc func(ctx context.Context, a domainauth.Access) (subscription.Resolution, bool)

func (f statusFunc) Resolve(ctx context.Context, a domainauth.Access) (subscription.Resolution, bool) {
	return f(ctx, a)
}

func daysPtr(n int) *int { return &n }

func trialIn(days int) statusFunc {
	return func(context.Context, domainauth.Access) (subscription.Resolution, bool) {
		return subscription.Resolution{Status: subscription.StatusTrial, DaysRemaining: daysPtr(days)}, true
	}
}

type shellHarness struct {
	svc      *ShellService
	tenants  *change.Hub[change.Key]
	sessions *change.Hub[string]
}

func newShellHarness(t *testing.T, access AccessResolver, status StatusResolver) shellHarness {
	t.Helper()
	h := shellHarness{tenants: change.NewHub[change.Key](), sessions: change.NewHub[string]()}
	svc, err := NewShellService(ShellServiceOptions{
		Sessions:      access,
		Statuses:      status,
		Tenants:       h.tenants,
		SessionEvents: h.sessions,
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

// runWatcher starts w and returns a channel of emitted states plus a stop func
// that waits for Run to return.
func runWatcher(t *testing.T, w *ShellWatcher) (<-chan ShellState, func()) {
	t.Helper()
	states := make(chan ShellState, 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, func(s ShellState) { states <- s }) }()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			select {
			case err := <-done:
				assert.NoError(t, err)
			case <-time.After(2 * time.Second):
				t.Fatal("watcher did not stop")
			}
		})
	}
	t.Cleanup(stop)
	return states, stop
}

func nextState(t *testing.T, ch <-chan ShellState) ShellState {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no shell state emitted")
		return ShellState{}
	}
}

func TestNewShellService_Validation(t *testing.T) {
	_, err := NewShellService(ShellServiceOptions{})
	require.Error(t, err)

	svc, err := NewShellService(ShellServiceOptions{Sessions: accessFunc(nil), Statuses: trialIn(1)})
	require.NoError(t, err)
	assert.Equal(t, subscription.DefaultModalThresholdDays, svc.ModalThresholdDays())
}

func TestShellService_Resolve(t *testing.T) {
	worker := shopAccess(domainauth.RoleShopWorker, "t1")
	insurer := domainauth.Access{Role: roleRef(domainauth.RoleInsurer)}

	tests := []struct {
		name      string
		access    domainauth.Access
		status    StatusResolver
		wantModal bool
	}{
		{"trial inside window", worker, trialIn(2), true},
		{"trial at threshold", worker, trialIn(3), true},
		{"trial outside window", worker, trialIn(4), false},
		{"exempt role", insurer, trialIn(0), false},
		{"expired", worker, statusFunc(func(context.Context, domainauth.Access) (subscription.Resolution, bool) {
			return subscription.Resolution{Status: subscription.StatusExpired, DaysRemaining: daysPtr(0)}, true
		}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			access := tt.access
			h := newShellHarness(t, accessFunc(func(context.Context, *domainauth.Identity) (domainauth.Access, bool) {
				return access, true
			}), tt.status)
			st := h.svc.Resolve(context.Background(), &domainauth.Identity{UserID: "u1"})
			assert.Equal(t, tt.wantModal, st.ShowModal)
			assert.True(t, st.Access.Equal(access))
		})
	}
}

func roleRef(r domainauth.Role) *domainauth.Role { return &r }

func TestShellService_ResolveKeepsInitialOnAccessFailure(t *testing.T) {
	h := newShellHarness(t,
		accessFunc(func(context.Context, *domainauth.Identity) (domainauth.Access, bool) {
			return domainauth.Access{}, false
		}),
		trialIn(1))
	st := h.svc.Resolve(context.Background(), &domainauth.Identity{UserID: "u1"})
	assert.False(t, st.Access.HasRole())
	assert.True(t, st.Subscription.Idle)
	assert.False(t, st.ShowModal)
}

func TestShellWatcher_RefreshesOnSessionAndTenantChanges(t *testing.T) {
	var role atomic.Value
	role.Store(domainauth.RoleShopWorker)
	var days atomic.Int32
	days.Store(10)

	h := newShellHarness(t,
		accessFunc(func(context.Context, *domainauth.Identity) (domainauth.Access, bool) {
			return shopAccess(role.Load().(domainauth.Role), "t1"), true
		}),
		statusFunc(func(context.Context, domainauth.Access) (subscription.Resolution, bool) {
			return subscription.Resolution{Status: subscription.StatusTrial, DaysRemaining: daysPtr(int(days.Load()))}, true
		}))

	w := h.svc.Watch(&domainauth.Identity{UserID: "u1"})
	states, stop := runWatcher(t, w)

	first := nextState(t, states)
	assert.Equal(t, domainauth.RoleShopWorker, first.Access.RoleOrEmpty())
	assert.False(t, first.ShowModal)

	tenantKey := change.Key{Table: change.TableTenants, TenantID: "t1"}
	require.Eventually(t, func() bool { return h.tenants.Subscribers(tenantKey) == 1 }, time.Second, 5*time.Millisecond)

	days.Store(1)
	h.tenants.Publish(tenantKey)
	second := nextState(t, states)
	assert.True(t, second.ShowModal)

	role.Store(domainauth.RoleShopAdmin)
	h.sessions.Publish("u1")
	third := nextState(t, states)
	assert.Equal(t, domainauth.RoleShopAdmin, third.Access.RoleOrEmpty())

	stop()
	assert.Equal(t, 0, h.tenants.Subscribers(tenantKey))
	assert.Equal(t, 0, h.tenants.Subscribers(change.Key{Table: change.TableRoleAssignments, TenantID: "t1"}))
	assert.Equal(t, 0, h.sessions.Subscribers("u1"))
}

func TestShellWatcher_UnchangedStateNotReemitted(t *testing.T) {
	h := newShellHarness(t,
		accessFunc(func(context.Context, *domainauth.Identity) (domainauth.Access, bool) {
			return shopAccess(domainauth.RoleShopWorker, "t1"), true
		}),
		trialIn(10))

	states, _ := runWatcher(t, h.svc.Watch(&domainauth.Identity{UserID: "u1"}))
	nextState(t, states)

	h.sessions.Publish("u1")
	select {
	case s := <-states:
		t.Fatalf("unexpected emit %+v", s)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestShellWatcher_DiscardsStaleResolution(t *testing.T) {
	var calls atomic.Int32
	entered := make(chan struct{})
	gate := make(chan struct{})

	h := newShellHarness(t,
		accessFunc(func(context.Context, *domainauth.Identity) (domainauth.Access, bool) {
			if calls.Add(1) == 1 {
				close(entered)
				<-gate
				return shopAccess(domainauth.RoleShopWorker, "old"), true
			}
			return shopAccess(domainauth.RoleShopAdmin, "new"), true
		}),
		trialIn(10))

	w := h.svc.Watch(&domainauth.Identity{UserID: "u1"})
	states, _ := runWatcher(t, w)

	<-entered
	h.sessions.Publish("u1")
	latest := nextState(t, states)
	assert.Equal(t, "new", *latest.Access.TenantID)

	close(gate)
	require.Eventually(t, func() bool { return w.Stale() == 1 }, time.Second, 5*time.Millisecond)
	select {
	case s := <-states:
		t.Fatalf("stale state emitted: %+v", s)
	default:
	}
}

func TestShellWatcher_FailedReadKeepsPrevious(t *testing.T) {
	var fail atomic.Bool
	h := newShellHarness(t,
		accessFunc(func(context.Context, *domainauth.Identity) (domainauth.Access, bool) {
			return shopAccess(domainauth.RoleShopWorker, "t1"), true
		}),
		statusFunc(func(context.Context, domainauth.Access) (subscription.Resolution, bool) {
			if fail.Load() {
				return subscription.Resolution{}, false
			}
			return subscription.Resolution{Status: subscription.StatusTrial, DaysRemaining: daysPtr(2)}, true
		}))

	states, _ := runWatcher(t, h.svc.Watch(&domainauth.Identity{UserID: "u1"}))
	first := nextState(t, states)
	require.True(t, first.ShowModal)

	fail.Store(true)
	h.sessions.Publish("u1")
	select {
	case s := <-states:
		t.Fatalf("failed read changed state: %+v", s)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestShellWatcher_FollowsTenantChange(t *testing.T) {
	var tenant atomic.Value
	tenant.Store("t1")
	h := newShellHarness(t,
		accessFunc(func(context.Context, *domainauth.Identity) (domainauth.Access, bool) {
			return shopAccess(domainauth.RoleShopWorker, tenant.Load().(string)), true
		}),
		trialIn(10))

	states, _ := runWatcher(t, h.svc.Watch(&domainauth.Identity{UserID: "u1"}))
	nextState(t, states)

	k1 := change.Key{Table: change.TableTenants, TenantID: "t1"}
	k2 := change.Key{Table: change.TableTenants, TenantID: "t2"}
	require.Eventually(t, func() bool { return h.tenants.Subscribers(k1) == 1 }, time.Second, 5*time.Millisecond)

	tenant.Store("t2")
	h.sessions.Publish("u1")
	moved := nextState(t, states)
	assert.Equal(t, "t2", *moved.Access.TenantID)
	require.Eventually(t, func() bool {
		return h.tenants.Subscribers(k1) == 0 && h.tenants.Subscribers(k2) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestShellWatcher_OverlappingFailedReadKeepsApplied(t *testing.T) {
	var calls atomic.Int32
	entered1, entered2 := make(chan struct{}), make(chan struct{})
	gate1, gate2 := make(chan struct{}), make(chan struct{})

	h := newShellHarness(t,
		accessFunc(func(context.Context, *domainauth.Identity) (domainauth.Access, bool) {
			switch calls.Add(1) {
			case 1:
				close(entered1)
				<-gate1
				return shopAccess(domainauth.RoleShopAdmin, "t1"), true
			case 2:
				close(entered2)
				<-gate2
				return domainauth.Access{}, false
			default:
				return shopAccess(domainauth.RoleShopAdmin, "t1"), true
			}
		}),
		statusFunc(func(context.Context, domainauth.Access) (subscription.Resolution, bool) {
			return subscription.Resolution{Status: subscription.StatusExpired, DaysRemaining: daysPtr(0)}, true
		}))

	w := h.svc.Watch(&domainauth.Identity{UserID: "u1"})
	states, _ := runWatcher(t, w)

	<-entered1
	h.sessions.Publish("u1")
	<-entered2

	close(gate1)
	first := nextState(t, states)
	require.Equal(t, domainauth.RoleShopAdmin, first.Access.RoleOrEmpty())
	require.True(t, first.ShowModal)

	close(gate2)
	select {
	case s := <-states:
		t.Fatalf("failed read replaced applied state: role=%q modal=%v", s.Access.RoleOrEmpty(), s.ShowModal)
	case <-time.After(100 * time.Millisecond):
	}
	assert.Zero(t, w.Stale())
}

func TestShellRead_Apply(t *testing.T) {
	admin := shopAccess(domainauth.RoleShopAdmin, "t1")
	expired := subscription.Resolution{Status: subscription.StatusExpired, DaysRemaining: daysPtr(0)}
	prev := ShellState{Access: admin, Subscription: expired, ShowModal: true}

	t.Run("access read failed", func(t *testing.T) {
		got, ok := shellRead{}.apply(prev, 3)
		assert.False(t, ok)
		assert.True(t, got.Equal(prev))
	})

	t.Run("status read failed for same shop", func(t *testing.T) {
		got, ok := shellRead{access: admin, accessOK: true}.apply(prev, 3)
		require.True(t, ok)
		assert.True(t, got.Equal(prev))
	})

	t.Run("status read failed after shop change", func(t *testing.T) {
		got, ok := shellRead{access: shopAccess(domainauth.RoleShopAdmin, "t2"), accessOK: true}.apply(prev, 3)
		require.True(t, ok)
		assert.Equal(t, "t2", *got.Access.TenantID)
		assert.True(t, got.Subscription.Idle)
		assert.False(t, got.ShowModal)
	})

	t.Run("both reads succeed", func(t *testing.T) {
		trial := subscription.Resolution{Status: subscription.StatusTrial, DaysRemaining: daysPtr(9)}
		got, ok := shellRead{access: admin, accessOK: true, sub: trial, subOK: true}.apply(prev, 3)
		require.True(t, ok)
		assert.Equal(t, subscription.StatusTrial, got.Subscription.Status)
		assert.False(t, got.ShowModal)
	})
}
