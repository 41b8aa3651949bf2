// Package httpapi is the thin HTTP surface over the auth engine: login,
// refresh, logout, current-user, and CSRF issuance. Everything else the
// site serves lives outside this module and consumes the same guards.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	adminauth "github.com/draycottmotors/adminauth"
	"github.com/draycottmotors/adminauth/csrf"
	"github.com/draycottmotors/adminauth/kv"
	"github.com/draycottmotors/adminauth/metrics"
	"github.com/draycottmotors/adminauth/middleware"
)

// API serves the admin auth endpoints.
type API struct {
	engine  *adminauth.Engine
	csrf    *csrf.Guard
	cookies middleware.CookieSpec
	guard   *middleware.Guard
	metrics *metrics.Metrics
	log     *zap.Logger
}

// New wires the API. guard authenticates /admin/me; metrics and log may
// be nil.
func New(engine *adminauth.Engine, csrfGuard *csrf.Guard, guard *middleware.Guard, cookies middleware.CookieSpec, m *metrics.Metrics, log *zap.Logger) *API {
	if log == nil {
		log = zap.NewNop()
	}
	return &API{
		engine:  engine,
		csrf:    csrfGuard,
		cookies: cookies,
		guard:   guard,
		metrics: m,
		log:     log,
	}
}

// Routes returns the mux with all admin auth endpoints registered.
// Logout is a mutating, cookie-authenticated request and carries the
// double-submit check. Login establishes the session and is protected
// by the rate limiter and CAPTCHA instead. Refresh is exempt as well:
// it is driven solely by the HttpOnly refresh cookie, rotates only the
// presenting caller's own tokens, and shares its path with the guard's
// silent refresh, which runs outside any double-submit exchange.
func (a *API) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	requireCsrf := middleware.RequireCsrf(a.csrf, a.metrics, a.log)

	mux.HandleFunc("POST /admin/login", a.handleLogin)
	mux.HandleFunc("POST /admin/refresh", a.handleRefresh)
	mux.Handle("POST /admin/logout", requireCsrf(http.HandlerFunc(a.handleLogout)))
	mux.Handle("GET /admin/me", a.guard.Require(middleware.Requirement{})(http.HandlerFunc(a.handleMe)))
	mux.HandleFunc("GET /admin/csrf", a.handleCsrf)

	return mux
}

// maxLoginBodyBytes bounds the login payload; the legitimate request is
// a few hundred bytes of JSON.
const maxLoginBodyBytes = 1 << 16

type loginRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	CaptchaToken string `json:"captchaToken,omitempty"`
}

type loginResponse struct {
	Success bool              `json:"success"`
	Profile adminauth.Profile `json:"profile"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxLoginBodyBytes)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, adminauth.CodeServerError, "invalid request body")
		return
	}

	result, err := a.engine.Login(r.Context(), adminauth.LoginInput{
		Email:        req.Email,
		Password:     req.Password,
		CaptchaToken: req.CaptchaToken,
		ClientKey:    ClientKey(r),
	})
	if err != nil {
		a.writeLoginError(w, err)
		return
	}

	a.cookies.SetPair(w, result.Tokens.Access, result.Tokens.Refresh)
	writeJSON(w, http.StatusOK, loginResponse{Success: true, Profile: result.Profile})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(a.cookies.RefreshName)
	if err != nil || cookie.Value == "" {
		middleware.WriteError(w, http.StatusUnauthorized, adminauth.CodeAuthFailed, "authentication required")
		return
	}

	pair, err := a.engine.Refresh(r.Context(), cookie.Value)
	if err != nil {
		if errors.Is(err, kv.ErrUnavailable) {
			middleware.WriteError(w, http.StatusServiceUnavailable, adminauth.CodeNetworkError, "service temporarily unavailable")
			return
		}
		a.cookies.Clear(w)
		middleware.WriteError(w, http.StatusUnauthorized, adminauth.CodeAuthFailed, "authentication required")
		return
	}

	a.cookies.SetPair(w, pair.Access, pair.Refresh)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	var access, refresh string
	if cookie, err := r.Cookie(a.cookies.AccessName); err == nil {
		access = cookie.Value
	}
	if cookie, err := r.Cookie(a.cookies.RefreshName); err == nil {
		refresh = cookie.Value
	}

	a.engine.Logout(r.Context(), access, refresh)
	a.cookies.Clear(w)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, adminauth.CodeAuthFailed, "authentication required")
		return
	}

	writeJSON(w, http.StatusOK, adminauth.ProfileOf(identity))
}

func (a *API) handleCsrf(w http.ResponseWriter, r *http.Request) {
	tokenValue, err := a.csrf.Issue()
	if err != nil {
		a.log.Error("csrf issuance failed", zap.Error(err))
		middleware.WriteError(w, http.StatusInternalServerError, adminauth.CodeServerError, "internal error")
		return
	}

	http.SetCookie(w, a.csrf.Cookie(tokenValue))
	writeJSON(w, http.StatusOK, map[string]string{"token": tokenValue})
}

func (a *API) writeLoginError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, adminauth.ErrLoginRateLimited):
		middleware.WriteError(w, http.StatusTooManyRequests, adminauth.CodeRateLimit, "too many attempts, try again later")
	case errors.Is(err, adminauth.ErrInvalidCredentials), errors.Is(err, adminauth.ErrCaptchaRejected):
		// One generic message for every credential-path failure.
		middleware.WriteError(w, http.StatusUnauthorized, adminauth.CodeAuthFailed, "invalid email or password")
	case errors.Is(err, kv.ErrUnavailable):
		middleware.WriteError(w, http.StatusServiceUnavailable, adminauth.CodeNetworkError, "service temporarily unavailable")
	default:
		a.log.Error("login failed", zap.Error(err))
		middleware.WriteError(w, http.StatusInternalServerError, adminauth.CodeServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
