// Package token issues, verifies, and rotates the signed access and
// refresh tokens that carry the admin identity. Verification consults an
// injected revocation check so that a revoked jti is rejected regardless
// of signature validity or remaining lifetime.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token type claim values. A refresh token must never be accepted where
// an access token is required, and vice versa.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	// ErrMalformed covers structurally invalid tokens and signature failures.
	ErrMalformed = errors.New("malformed token")
	// ErrTypeMismatch is returned when a token's typ claim does not match
	// the expected token type.
	ErrTypeMismatch = errors.New("token type mismatch")
	// ErrExpired is returned for structurally valid tokens past their expiry.
	ErrExpired = errors.New("token expired")
	// ErrRevoked is returned when the token's jti is on the revocation list.
	ErrRevoked = errors.New("token revoked")
)

// Identity is the authenticated admin identity embedded in every token.
// Permissions is a set of named boolean capabilities.
type Identity struct {
	ID          string          `json:"id"`
	Email       string          `json:"email"`
	Role        string          `json:"role"`
	Permissions map[string]bool `json:"permissions,omitempty"`
}

// Claims is the signed token payload.
type Claims struct {
	Email       string          `json:"email"`
	Role        string          `json:"role"`
	Permissions map[string]bool `json:"perms,omitempty"`
	TokenType   string          `json:"typ"`
	jwt.RegisteredClaims
}

// Identity extracts the identity fields from the claims.
func (c *Claims) Identity() Identity {
	return Identity{
		ID:          c.Subject,
		Email:       c.Email,
		Role:        c.Role,
		Permissions: c.Permissions,
	}
}

// Pair is a freshly issued access+refresh token pair with expiry
// instants for cookie max-age computation.
type Pair struct {
	Access           string
	Refresh          string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Revoker is the revocation contract the service depends on. The
// concrete registry is injected so either store backend can be
// substituted without code changes here.
type Revoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) bool
}

// Config holds signing and lifetime parameters.
type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Leeway     time.Duration
}

// Service issues and verifies tokens. Issuance and verification are
// stateless aside from the revocation lookup and need no locking.
type Service struct {
	config  Config
	revoker Revoker
}

// NewService validates cfg and creates a Service.
func NewService(cfg Config, revoker Revoker) (*Service, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("token: signing secret must be at least 32 bytes")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token: access and refresh TTLs must be positive")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("token: invalid leeway configuration")
	}
	if revoker == nil {
		return nil, errors.New("token: revoker is required")
	}

	return &Service{config: cfg, revoker: revoker}, nil
}

// IssueAccess signs a short-lived access token with a fresh jti.
func (s *Service) IssueAccess(identity Identity) (string, time.Time, error) {
	return s.issue(identity, TypeAccess, s.config.AccessTTL)
}

// IssueRefresh signs a long-lived refresh token with a fresh jti.
func (s *Service) IssueRefresh(identity Identity) (string, time.Time, error) {
	return s.issue(identity, TypeRefresh, s.config.RefreshTTL)
}

// IssuePair issues an access and a refresh token for the same identity.
func (s *Service) IssuePair(identity Identity) (*Pair, error) {
	access, accessExp, err := s.IssueAccess(identity)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.IssueRefresh(identity)
	if err != nil {
		return nil, err
	}

	return &Pair{
		Access:           access,
		Refresh:          refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// VerifyAccess checks signature, type, expiry, and revocation for an
// access token and returns its claims.
func (s *Service) VerifyAccess(ctx context.Context, tokenStr string) (*Claims, error) {
	return s.verify(ctx, tokenStr, TypeAccess)
}

// VerifyRefresh is VerifyAccess for refresh tokens.
func (s *Service) VerifyRefresh(ctx context.Context, tokenStr string) (*Claims, error) {
	return s.verify(ctx, tokenStr, TypeRefresh)
}

// Refresh rotates a refresh token: the presented token is verified, its
// jti is revoked immediately so a replay of the used token fails, and a
// brand new access+refresh pair is issued. A store failure during the
// revocation step aborts the rotation, otherwise the old token would
// stay replayable.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Pair, error) {
	claims, err := s.VerifyRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	if err := s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return nil, err
	}

	return s.IssuePair(claims.Identity())
}

// RevokeToken revokes the token's jti until its natural expiry. The
// token is decoded without signature verification: this path only feeds
// the revocation list (logout), never an authorization decision, and a
// garbage token simply revokes nothing.
func (s *Service) RevokeToken(ctx context.Context, tokenStr string) error {
	claims := s.DecodeUnsafe(tokenStr)
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}

	return s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

// DecodeUnsafe extracts claims without verifying the signature. Returns
// nil for anything structurally invalid. Must never be used as the basis
// of an authorization decision.
func (s *Service) DecodeUnsafe(tokenStr string) *Claims {
	parser := jwt.NewParser()
	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(tokenStr, claims); err != nil {
		return nil
	}
	return claims
}

func (s *Service) issue(identity Identity, tokenType string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		Email:       identity.Email,
		Role:        identity.Role,
		Permissions: identity.Permissions,
		TokenType:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    s.config.Issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return signed, expiresAt, nil
}

func (s *Service) verify(ctx context.Context, tokenStr, expectedType string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if s.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(s.config.Leeway))
	}
	if s.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(s.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.config.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			// Type confusion outranks expiry: an expired refresh token
			// presented as an access token is a type mismatch, not a
			// refresh candidate.
			if parsed != nil {
				if claims, ok := parsed.Claims.(*Claims); ok && claims.TokenType != expectedType {
					return nil, ErrTypeMismatch
				}
			}
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}

	if claims.TokenType != expectedType {
		return nil, ErrTypeMismatch
	}

	if s.revoker.IsRevoked(ctx, claims.ID) {
		return nil, ErrRevoked
	}

	return claims, nil
}
