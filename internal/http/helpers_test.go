package httpx

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tallerhub/tallerhub"
	domainauth "github.com/tallerhub/tallerhub/internal/domain/auth"
	"github.com/tallerhub/tallerhub/internal/domain/change"
	"github.com/tallerhub/tallerhub/internal/domain/kanban"
	"github.com/tallerhub/tallerhub/internal/domain/subscription"
	"github.com/tallerhub/tallerhub/internal/observability/metrics"
	"github.com/tallerhub/tallerhub/internal/service"
)

const (
	testSessionID = "sess-1"
	testUserID    = "user-1"
	testTenantID  = "tenant-1"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newBufferLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, nil))
}

func rolePtr(r domainauth.Role) *domainauth.Role { return &r }

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

// stubAuth is an in-memory AuthServiceInterface.
type stubAuth struct {
	mu          sync.Mutex
	sessions    map[string]*domainauth.Session
	bearer      map[string]*domainauth.Identity
	begin       *service.BeginLoginResult
	beginErr    error
	complete    *domainauth.Session
	completeErr error
	lastInput   service.CompleteLoginInput
	loggedOut   []string
}

func newStubAuth() *stubAuth {
	return &stubAuth{
		sessions: map[string]*domainauth.Session{
			testSessionID: {
				ID:        testSessionID,
				UserID:    testUserID,
				FirstName: "Ana",
				LastName:  "Pérez",
				Email:     "ana@example.com",
				ExpiresAt: time.Now().Add(time.Hour),
			},
		},
		bearer: map[string]*domainauth.Identity{},
	}
}

func (s *stubAuth) BeginLogin(_ context.Context, _ string) (*service.BeginLoginResult, error) {
	return s.begin, s.beginErr
}

func (s *stubAuth) CompleteLogin(_ context.Context, in service.CompleteLoginInput) (*domainauth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastInput = in
	return s.complete, s.completeErr
}

func (s *stubAuth) GetSession(_ context.Context, id string) (*domainauth.Session, error) {
	if sess, ok := s.sessions[id]; ok {
		return sess, nil
	}
	return nil, errors.New("session not found")
}

func (s *stubAuth) AuthenticateBearer(_ context.Context, token string) (*domainauth.Identity, error) {
	if id, ok := s.bearer[token]; ok {
		return id, nil
	}
	return nil, errors.New("invalid token")
}

func (s *stubAuth) Logout(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loggedOut = append(s.loggedOut, id)
	return nil
}

// fixedAccess resolves every identity to the same access.
type fixedAccess struct {
	access domainauth.Access
	ok     bool
}

func (f fixedAccess) Resolve(_ context.Context, identity *domainauth.Identity) (domainauth.Access, bool) {
	if identity == nil {
		return domainauth.Access{}, true
	}
	return f.access, f.ok
}

// fixedStatus returns the same resolution for every shop-scoped access.
type fixedStatus struct {
	res subscription.Resolution
}

func (f fixedStatus) Resolve(_ context.Context, a domainauth.Access) (subscription.Resolution, bool) {
	if a.TenantID == nil || (a.Role != nil && a.Role.ExemptFromTrial()) {
		return subscription.IdleResolution(), true
	}
	return f.res, true
}

type shellFixture struct {
	role   *domainauth.Role
	tenant *string
	status subscription.Resolution
	hub    *change.Hub[change.Key]
}

func newShellService(t *testing.T, fx shellFixture) *service.ShellService {
	t.Helper()
	svc, err := service.NewShellService(service.ShellServiceOptions{
		Sessions: fixedAccess{access: domainauth.Access{Role: fx.role, TenantID: fx.tenant}, ok: true},
		Statuses: fixedStatus{res: fx.status},
		Tenants:  fx.hub,
		Logger:   discardLogger(),
	})
	require.NoError(t, err)
	return svc
}

func newTestRenderer(t *testing.T) *TemplateRenderer {
	t.Helper()
	sub, err := fs.Sub(tallerhub.TemplateFS, "frontend/templates")
	require.NoError(t, err)
	r, err := NewTemplateRenderer(TemplateRendererConfig{TemplateFS: sub, Logger: discardLogger()})
	require.NoError(t, err)
	return r
}

// stubKanban serves a fixed board and records moves.
type stubKanban struct {
	board    kanban.Board
	boardErr error
	moved    *kanban.WorkOrder
	moveErr  error
	lastMove kanban.MoveRequest
}

func (s *stubKanban) Board(_ context.Context, _ domainauth.Access) (kanban.Board, error) {
	return s.board, s.boardErr
}

func (s *stubKanban) Move(_ context.Context, _ domainauth.Access, req kanban.MoveRequest) (*kanban.WorkOrder, error) {
	s.lastMove = req
	return s.moved, s.moveErr
}

type stubTenants struct {
	activated []string
	err       error
}

func (s *stubTenants) Activate(_ context.Context, _ domainauth.Access, req service.ActivateTenantRequest) error {
	s.activated = append(s.activated, req.TenantID)
	return s.err
}

type routerFixture struct {
	auth    *stubAuth
	kanban  *stubKanban
	tenants *stubTenants
	metrics *metrics.Registry
	handler http.Handler
}

func newTestRouter(t *testing.T, fx shellFixture) *routerFixture {
	t.Helper()
	rf := &routerFixture{
		auth:    newStubAuth(),
		kanban:  &stubKanban{board: kanban.BuildBoard(testTenantID, nil)},
		tenants: &stubTenants{},
		metrics: metrics.New(),
	}
	static, err := fs.Sub(tallerhub.StaticFS, "frontend/static")
	require.NoError(t, err)
	rf.handler = NewRouter(RouterServices{
		Auth:        rf.auth,
		Shell:       newShellService(t, fx),
		Kanban:      rf.kanban,
		Tenants:     rf.tenants,
		Renderer:    newTestRenderer(t),
		StaticFS:    static,
		Metrics:     rf.metrics,
		MetricsPath: "/metrics",
		LoginRate:   100,
		LoginBurst:  100,
		Logger:      discardLogger(),
	})
	return rf
}

func sessionCookie() *http.Cookie {
	return &http.Cookie{Name: sessionCookieName, Value: testSessionID}
}
