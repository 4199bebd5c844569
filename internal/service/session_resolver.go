package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tallerhub/tallerhub/internal/data"
	domainauth "github.com/tallerhub/tallerhub/internal/domain/auth"
	"github.com/tallerhub/tallerhub/internal/observability/metrics"
	"github.com/tallerhub/tallerhub/internal/ports"
)

// SessionResolverOptions groups dependencies for SessionResolver.
type SessionResolverOptions struct {
	Assignments ports.RoleAssignmentReader // Required
	Logger      *slog.Logger
	Metrics     *metrics.Registry
}

// SessionResolver maps an authenticated identity to its role and shop using the
// role assignment record. It never returns an error: a missing or unreadable
// record yields no role, which every guard treats as denied.
type SessionResolver struct {
	assignments ports.RoleAssignmentReader
	logger      *slog.Logger
	metrics     *metrics.Registry
}

// NewSessionResolver constructs a SessionResolver.
func NewSessionResolver(opts SessionResolverOptions) (*SessionResolver, error) {
	if opts.Assignments == nil {
		return nil, errors.New("RoleAssignmentReader is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionResolver{
		assignments: opts.Assignments,
		logger:      logger.With("component", "session_resolver"),
		metrics:     opts.Metrics,
	}, nil
}

// Resolve returns the caller's access. ok is false only when the assignment
// could not be read; callers keep whatever they resolved before.
func (r *SessionResolver) Resolve(ctx context.Context, identity *domainauth.Identity) (domainauth.Access, bool) {
	if identity == nil || identity.UserID == "" {
		r.metrics.Resolution("session", metrics.ResultIdle)
		return domainauth.Access{}, true
	}

	a, err := r.assignments.GetByUserID(ctx, identity.UserID)
	if errors.Is(err, data.ErrRoleAssignmentNotFound) {
		r.missing(ctx, identity.UserID, "no record")
		return domainauth.Access{}, true
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "role assignment read failed", "user_id", identity.UserID, "error", err)
		r.metrics.Resolution("session", metrics.ResultError)
		return domainauth.Access{}, false
	}

	role, ok := domainauth.ParseStoredRole(a.Role)
	if !ok {
		r.missing(ctx, identity.UserID, "unknown role "+a.Role)
		return domainauth.Access{}, true
	}

	r.metrics.Resolution("session", metrics.ResultOK)
	return domainauth.Access{Role: &role, TenantID: a.TenantID}, true
}

func (r *SessionResolver) missing(ctx context.Context, userID, reason string) {
	r.logger.WarnContext(ctx, "role assignment missing", "user_id", userID, "reason", reason)
	r.metrics.AssignmentMissing()
	r.metrics.Resolution("session", metrics.ResultMissing)
}
