package httpx

import (
	"context"

	domainauth "github.com/tallerhub/tallerhub/internal/domain/auth"
	"github.com/tallerhub/tallerhub/internal/service"
)

// Unexported context key types; all handlers and middleware share these.
type (
	sessionKey    struct{}
	identityKey   struct{}
	shellStateKey struct{}
	requestIDKey  struct{}
)

// SetSessionInContext returns a child context carrying the browser session.
// If session is nil, the original ctx is returned unchanged.
func SetSessionInContext(ctx context.Context, session *domainauth.Session) context.Context {
	if session == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, session)
}

// GetSessionFromContext returns the browser session, if the request carried one.
// Bearer-authenticated requests have an identity but no session.
func GetSessionFromContext(ctx context.Context) (*domainauth.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*domainauth.Session)
	return s, ok && s != nil
}

// SetIdentityInContext returns a child context carrying the authenticated identity.
func SetIdentityInContext(ctx context.Context, identity *domainauth.Identity) context.Context {
	if identity == nil {
		return ctx
	}
	return context.WithValue(ctx, identityKey{}, identity)
}

// GetIdentityFromContext returns the authenticated identity and whether one is present.
func GetIdentityFromContext(ctx context.Context) (*domainauth.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*domainauth.Identity)
	return id, ok && id != nil
}

// SetShellStateInContext stores the resolution the route guard decided on.
func SetShellStateInContext(ctx context.Context, st service.ShellState) context.Context {
	return context.WithValue(ctx, shellStateKey{}, st)
}

// GetShellStateFromContext returns the guard's resolution for this request.
func GetShellStateFromContext(ctx context.Context) (service.ShellState, bool) {
	st, ok := ctx.Value(shellStateKey{}).(service.ShellState)
	return st, ok
}

// RequestIDFromContext returns the id assigned by RequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
