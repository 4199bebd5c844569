// Package jwtauth verifies HS256 bearer tokens issued by the hosted auth service.
package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainauth "github.com/tallerhub/tallerhub/internal/domain/auth"
	"github.com/tallerhub/tallerhub/internal/ports"
)

var _ ports.TokenVerifier = (*Verifier)(nil)

var (
	// ErrTokenExpired is returned for well-formed tokens past their exp claim.
	ErrTokenExpired = errors.New("token has expired")
	// ErrTokenInvalid covers every other verification failure.
	ErrTokenInvalid = errors.New("token is invalid")
)

// Metadata carries the profile fields the auth service stores alongside the user.
type Metadata struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Claims is the token body. Role is deliberately absent: authorization comes from
// the role assignment table, never from the token.
type Claims struct {
	Email    string   `json:"email,omitempty"`
	Metadata Metadata `json:"user_metadata"`
	jwt.RegisteredClaims
}

// Config configures a Verifier.
type Config struct {
	Secret   []byte
	Issuer   string // optional
	Audience string // optional
	Now      func() time.Time
}

// Verifier validates tokens and maps their claims into an Identity.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
	cfg    Config
}

// NewVerifier validates cfg and builds a Verifier.
func NewVerifier(cfg Config) (*Verifier, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("jwt secret must be at least 32 bytes")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(cfg.Now),
		jwt.WithLeeway(30 * time.Second),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &Verifier{secret: cfg.Secret, parser: jwt.NewParser(opts...), cfg: cfg}, nil
}

// Verify parses token and returns the identity it asserts.
func (v *Verifier) Verify(_ context.Context, token string) (domainauth.Identity, error) {
	var claims Claims
	_, err := v.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if errors.Is(err, jwt.ErrTokenExpired) {
		return domainauth.Identity{}, ErrTokenExpired
	}
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if claims.Subject == "" {
		return domainauth.Identity{}, fmt.Errorf("%w: missing sub", ErrTokenInvalid)
	}

	return domainauth.Identity{
		UserID:    claims.Subject,
		FirstName: claims.Metadata.FirstName,
		LastName:  claims.Metadata.LastName,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Issue signs a token for id that expires after ttl. Used by the admin CLI and tests.
func (v *Verifier) Issue(id domainauth.Identity, ttl time.Duration) (string, error) {
	now := v.cfg.Now()
	claims := Claims{
		Email:    id.Email,
		Metadata: Metadata{FirstName: id.FirstName, LastName: id.LastName},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    v.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if v.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{v.cfg.Audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
