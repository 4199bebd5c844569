package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/tallerhub/tallerhub/internal/domain/auth"
	"github.com/tallerhub/tallerhub/internal/domain/change"
	"github.com/tallerhub/tallerhub/internal/ports"
)

// ErrSessionExpired is returned for sessions past their expiry.
var ErrSessionExpired = errors.New("session expired")

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Provider ports.AuthProvider  // Required for browser login
	Sessions ports.SessionStore  // Required
	Tokens   ports.TokenVerifier // Optional: bearer tokens for API callers
	// Events receives a signal keyed by user id on login and logout so open
	// shells re-resolve. Optional.
	Events *change.Hub[string]
	// SessionTTL caps session lifetime; zero keeps the IdP expiry.
	SessionTTL time.Duration
	Logger     *slog.Logger
	Now        func() time.Time
}

// AuthService coordinates the identity provider, bearer verification and
// session persistence. It never decides roles; see SessionResolver.
type AuthService struct {
	provider ports.AuthProvider
	sessions ports.SessionStore
	tokens   ports.TokenVerifier
	events   *change.Hub[string]
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		provider: opts.Provider,
		sessions: opts.Sessions,
		tokens:   opts.Tokens,
		events:   opts.Events,
		ttl:      opts.SessionTTL,
		logger:   logger.With("component", "auth_service"),
		now:      now,
	}
}

// BeginLoginResult contains the result of beginning a login flow.
type BeginLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginLogin initiates an authentication flow.
func (s *AuthService) BeginLogin(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}
	authURL, state, nonce, err := s.provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}
	return &BeginLoginResult{AuthURL: authURL, State: state, Nonce: nonce}, nil
}

// CompleteLoginInput groups parameters for completing a login flow.
type CompleteLoginInput struct {
	Code  string
	State string
	Nonce string
}

// CompleteLogin exchanges the code for an identity and persists a session.
func (s *AuthService) CompleteLogin(ctx context.Context, in CompleteLoginInput) (*domainauth.Session, error) {
	switch {
	case in.Code == "":
		return nil, errors.New("authorization code is required")
	case in.State == "":
		return nil, errors.New("state parameter is required")
	case in.Nonce == "":
		return nil, errors.New("nonce parameter is required")
	}

	identity, err := s.provider.Exchange(ctx, ports.ExchangeInput(in))
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	sess := domainauth.Session{
		ID:        uuid.NewString(),
		UserID:    identity.UserID,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		Email:     identity.Email,
		ExpiresAt: s.sessionExpiry(identity.ExpiresAt),
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.InfoContext(ctx, "user signed in", "user_id", sess.UserID)
	s.publish(sess.UserID)
	return &sess, nil
}

func (s *AuthService) sessionExpiry(idp time.Time) time.Time {
	if s.ttl <= 0 {
		return idp
	}
	limit := s.now().Add(s.ttl)
	if idp.IsZero() || idp.After(limit) {
		return limit
	}
	return idp
}

// GetSession returns a live session or ErrSessionExpired.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, errors.New("session ID is required")
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if s.now().After(sess.ExpiresAt) {
		if err := s.sessions.Delete(ctx, sessionID); err != nil {
			return nil, errors.Join(ErrSessionExpired, fmt.Errorf("delete session: %w", err))
		}
		return nil, ErrSessionExpired
	}
	return &sess, nil
}

// AuthenticateBearer verifies an API token and returns the identity it carries.
func (s *AuthService) AuthenticateBearer(ctx context.Context, token string) (*domainauth.Identity, error) {
	if s.tokens == nil {
		return nil, errors.New("bearer authentication is not configured")
	}
	id, err := s.tokens.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("verify bearer token: %w", err)
	}
	return &id, nil
}

// Logout removes a session and notifies the user's open shells.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	sess, getErr := s.sessions.Get(ctx, sessionID)
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if getErr == nil {
		s.logger.InfoContext(ctx, "user signed out", "user_id", sess.UserID)
		s.publish(sess.UserID)
	}
	return nil
}

func (s *AuthService) publish(userID string) {
	if s.events != nil && userID != "" {
		s.events.Publish(userID)
	}
}
