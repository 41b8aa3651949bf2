// Package middleware wraps protected HTTP operations with access-token
// verification, role/permission enforcement, and double-submit CSRF
// checks, in the style of net/http middleware chains.
package middleware

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	adminauth "github.com/draycottmotors/adminauth"
	"github.com/draycottmotors/adminauth/metrics"
	"github.com/draycottmotors/adminauth/token"
)

type identityContextKey struct{}

// IdentityFromContext returns the authenticated identity attached by the
// Guard, if any.
func IdentityFromContext(ctx context.Context) (adminauth.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(adminauth.Identity)
	return identity, ok
}

// TokenVerifier is the verification contract the guard depends on.
type TokenVerifier interface {
	VerifyAccess(ctx context.Context, tokenStr string) (*token.Claims, error)
}

// Refresher rotates a refresh token into a fresh pair; used for the
// silent-refresh recovery of expired access tokens.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*token.Pair, error)
}

// Requirement is an optional role or permission a protected operation
// demands. The super_admin role satisfies any requirement.
type Requirement struct {
	Role       string
	Permission string
}

// Guard authenticates requests from the access-token cookie.
type Guard struct {
	Tokens    TokenVerifier
	Refresher Refresher
	Cookies   CookieSpec
	Metrics   *metrics.Metrics
	Log       *zap.Logger
}

// NewGuard creates a Guard. Refresher and Metrics may be nil; a nil
// logger falls back to zap.NewNop.
func NewGuard(tokens TokenVerifier, refresher Refresher, cookies CookieSpec, m *metrics.Metrics, log *zap.Logger) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{Tokens: tokens, Refresher: refresher, Cookies: cookies, Metrics: m, Log: log}
}

// Require wraps next with authentication and the given requirement.
// An empty Requirement means "any authenticated admin".
func (g *Guard) Require(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := g.authenticate(w, r)
			if !ok {
				return
			}

			identity := claims.Identity()
			if !satisfies(identity, req) {
				g.Log.Info("permission denied",
					zap.String("subject", identity.ID),
					zap.String("role", identity.Role),
					zap.String("required_role", req.Role),
					zap.String("required_permission", req.Permission),
				)
				WriteError(w, http.StatusForbidden, adminauth.CodeAuthFailed, "forbidden")
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// authenticate resolves the access token, attempting one silent refresh
// when the token is expired but structurally valid. On failure it writes
// the 401 envelope and clears the stale cookies.
func (g *Guard) authenticate(w http.ResponseWriter, r *http.Request) (*token.Claims, bool) {
	cookie, err := r.Cookie(g.Cookies.AccessName)
	if err != nil || cookie.Value == "" {
		WriteError(w, http.StatusUnauthorized, adminauth.CodeAuthFailed, "authentication required")
		return nil, false
	}

	claims, err := g.Tokens.VerifyAccess(r.Context(), cookie.Value)
	if err == nil {
		g.Metrics.ObserveVerification("ok")
		return claims, true
	}

	g.Metrics.ObserveVerification(verificationLabel(err))

	if errors.Is(err, token.ErrExpired) && g.Refresher != nil {
		if claims, ok := g.silentRefresh(w, r); ok {
			return claims, true
		}
	}

	g.Cookies.Clear(w)
	WriteError(w, http.StatusUnauthorized, adminauth.CodeAuthFailed, "authentication required")
	return nil, false
}

func (g *Guard) silentRefresh(w http.ResponseWriter, r *http.Request) (*token.Claims, bool) {
	refreshCookie, err := r.Cookie(g.Cookies.RefreshName)
	if err != nil || refreshCookie.Value == "" {
		return nil, false
	}

	pair, err := g.Refresher.Refresh(r.Context(), refreshCookie.Value)
	if err != nil {
		g.Log.Debug("silent refresh failed", zap.Error(err))
		return nil, false
	}

	claims, err := g.Tokens.VerifyAccess(r.Context(), pair.Access)
	if err != nil {
		return nil, false
	}

	g.Cookies.SetPair(w, pair.Access, pair.Refresh)
	g.Log.Debug("silent refresh", zap.String("subject", claims.Subject))
	return claims, true
}

func satisfies(identity adminauth.Identity, req Requirement) bool {
	if req.Role == "" && req.Permission == "" {
		return true
	}
	if identity.Role == adminauth.RoleSuperAdmin {
		return true
	}
	if req.Role != "" && identity.Role == req.Role {
		return true
	}
	if req.Permission != "" && identity.Permissions[req.Permission] {
		return true
	}
	return false
}

func verificationLabel(err error) string {
	switch {
	case errors.Is(err, token.ErrExpired):
		return "expired"
	case errors.Is(err, token.ErrRevoked):
		return "revoked"
	case errors.Is(err, token.ErrTypeMismatch):
		return "type_mismatch"
	default:
		return "malformed"
	}
}
