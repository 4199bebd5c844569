package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/tallerhub/tallerhub/config"
	"github.com/tallerhub/tallerhub/internal/adapters/devauth"
	"github.com/tallerhub/tallerhub/internal/adapters/jwtauth"
	"github.com/tallerhub/tallerhub/internal/adapters/oidc"
	redisadapter "github.com/tallerhub/tallerhub/internal/adapters/redis"
	"github.com/tallerhub/tallerhub/internal/domain/change"
	"github.com/tallerhub/tallerhub/internal/ports"
	"github.com/tallerhub/tallerhub/internal/service"
)

// AuthConfig contains configuration for auth service.
type AuthConfig struct {
	Auth          config.AuthConfig
	SessionPrefix string
	RedisClient   redis.UniversalClient
	// Events receives a user ID on every login and logout.
	Events *change.Hub[string]
	Logger *slog.Logger
}

// BuildAuthService creates an auth service for the configured mode. Sessions
// live in Redis, so a client is required.
func BuildAuthService(cfg AuthConfig) (*service.AuthService, error) {
	if cfg.RedisClient == nil {
		return nil, errors.New("auth requires a redis client for sessions")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var opts []redisadapter.SessionStoreOption
	if cfg.SessionPrefix != "" {
		opts = append(opts, redisadapter.WithPrefix(cfg.SessionPrefix))
	}
	sessions := redisadapter.NewSessionStore(cfg.RedisClient, opts...)

	provider, err := buildProvider(cfg.Auth)
	if err != nil {
		return nil, err
	}

	var tokens ports.TokenVerifier
	if cfg.Auth.JWT.Enabled() {
		v, err := jwtauth.NewVerifier(jwtauth.Config{
			Secret:   []byte(cfg.Auth.JWT.Secret),
			Issuer:   cfg.Auth.JWT.Issuer,
			Audience: cfg.Auth.JWT.Audience,
		})
		if err != nil {
			return nil, fmt.Errorf("build jwt verifier: %w", err)
		}
		tokens = v
	}

	logger.Info("auth configured", "mode", cfg.Auth.Mode, "bearer_tokens", tokens != nil)
	return service.NewAuthService(service.AuthServiceOptions{
		Provider:   provider,
		Sessions:   sessions,
		Tokens:     tokens,
		Events:     cfg.Events,
		SessionTTL: cfg.Auth.SessionTTL,
		Logger:     logger,
	}), nil
}

//nolint:ireturn // the provider implementation is chosen by mode.
func buildProvider(cfg config.AuthConfig) (ports.AuthProvider, error) {
	switch cfg.Mode {
	case config.AuthModeMock:
		prov, err := devauth.NewProvider(devauth.Config{
			UserID:          cfg.DevAuth.UserID,
			Email:           cfg.DevAuth.Email,
			FirstName:       cfg.DevAuth.FirstName,
			LastName:        cfg.DevAuth.LastName,
			SessionDuration: cfg.SessionTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("build dev auth provider: %w", err)
		}
		return prov, nil

	case config.AuthModeOAuth:
		oauth := cfg.OAuth
		if oauth.DiscoveryURL == "" || oauth.ClientID == "" {
			return nil, errors.New("oauth mode requires OAUTH_CLIENT_ID and OAUTH_DISCOVERY_URL")
		}
		prov, err := oidc.NewProvider(oidc.ProviderConfig{
			ClientID:     oauth.ClientID,
			ClientSecret: oauth.ClientSecret,
			RedirectURL:  oauth.RedirectURL,
			Scope:        oauth.Scope,
			DiscoveryURL: oauth.DiscoveryURL,
		})
		if err != nil {
			return nil, fmt.Errorf("build oidc provider: %w", err)
		}
		return prov, nil

	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Mode)
	}
}
