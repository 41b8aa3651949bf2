package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adminauth "github.com/draycottmotors/adminauth"
	"github.com/draycottmotors/adminauth/csrf"
	"github.com/draycottmotors/adminauth/kv"
	"github.com/draycottmotors/adminauth/middleware"
	"github.com/draycottmotors/adminauth/ratelimit"
	"github.com/draycottmotors/adminauth/revocation"
	"github.com/draycottmotors/adminauth/token"
)

type staticCredentials struct {
	calls int
}

func (s *staticCredentials) VerifyCredentials(_ context.Context, email, password string) (*adminauth.Identity, error) {
	s.calls++
	if email == "admin@draycott.example" && password == "correct-horse" {
		return &adminauth.Identity{
			ID:          "adm-1",
			Email:       email,
			Role:        "manager",
			Permissions: map[string]bool{"inventory.write": true},
		}, nil
	}
	return nil, errors.New("unknown account or bad password")
}

type scoredCaptcha struct{ score float64 }

func (s scoredCaptcha) Verify(context.Context, string, string, float64) (adminauth.CaptchaResult, error) {
	return adminauth.CaptchaResult{Success: true, Score: s.score, Action: "admin_login"}, nil
}

type fixture struct {
	api   *API
	mux   *http.ServeMux
	creds *staticCredentials
}

func newFixture(t *testing.T, captcha adminauth.CaptchaVerifier) *fixture {
	t.Helper()

	cfg := adminauth.DefaultConfig()
	cfg.SigningSecret = "0123456789abcdef0123456789abcdef"

	store := kv.NewMemoryStore()
	limiter, err := ratelimit.New(store, ratelimit.Config{
		MaxAttempts: cfg.Login.MaxAttempts,
		Window:      cfg.Login.Window,
	})
	require.NoError(t, err)

	registry := revocation.NewRegistry(store, nil)
	tokens, err := token.NewService(token.Config{
		Secret:     []byte(cfg.SigningSecret),
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
		Issuer:     cfg.Issuer,
	}, registry)
	require.NoError(t, err)

	creds := &staticCredentials{}
	engine, err := adminauth.New(cfg, adminauth.Deps{
		Limiter:     limiter,
		Tokens:      tokens,
		Credentials: creds,
		Captcha:     captcha,
	})
	require.NoError(t, err)

	cookies := middleware.CookieSpec{
		AccessName:    cfg.Cookies.AccessName,
		RefreshName:   cfg.Cookies.RefreshName,
		AccessMaxAge:  cfg.AccessTTL,
		RefreshMaxAge: cfg.RefreshTTL,
	}
	guard := middleware.NewGuard(tokens, tokens, cookies, nil, nil)
	csrfGuard := csrf.NewGuard(csrf.Config{CookieName: cfg.Csrf.CookieName, TTL: cfg.Csrf.TTL})

	api := New(engine, csrfGuard, guard, cookies, nil, nil)

	return &fixture{api: api, mux: api.Routes(), creds: creds}
}

func doLogin(t *testing.T, mux *http.ServeMux, body map[string]string, ip string) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/admin/login", bytes.NewReader(payload))
	req.Header.Set("X-Forwarded-For", ip)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func cookieByName(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestLoginSetsCookiesAndReturnsProfile(t *testing.T) {
	fx := newFixture(t, scoredCaptcha{score: 0.9})

	rec := doLogin(t, fx.mux, map[string]string{
		"email":        "admin@draycott.example",
		"password":     "correct-horse",
		"captchaToken": "evidence",
	}, "203.0.113.5")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool              `json:"success"`
		Profile adminauth.Profile `json:"profile"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "admin@draycott.example", resp.Profile.Email)

	access := cookieByName(t, rec, "admin_access_token")
	refresh := cookieByName(t, rec, "admin_refresh_token")
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	assert.True(t, access.HttpOnly)
	assert.True(t, refresh.HttpOnly)
	assert.NotEmpty(t, access.Value)
	assert.NotEmpty(t, refresh.Value)

	// the response body never carries the tokens themselves
	assert.NotContains(t, rec.Body.String(), access.Value)
}

func TestLoginBadCredentialsIsGeneric(t *testing.T) {
	fx := newFixture(t, nil)

	for _, body := range []map[string]string{
		{"email": "nobody@draycott.example", "password": "whatever"},
		{"email": "admin@draycott.example", "password": "wrong"},
	} {
		rec := doLogin(t, fx.mux, body, "203.0.113.5")

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		var envelope adminauth.Envelope
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
		assert.Equal(t, adminauth.CodeAuthFailed, envelope.Code)
		assert.Equal(t, "invalid email or password", envelope.Error)
	}
}

func TestLoginOversizedBodyRejected(t *testing.T) {
	fx := newFixture(t, nil)

	payload := `{"email":"admin@draycott.example","password":"` +
		strings.Repeat("x", maxLoginBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	fx.mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, fx.creds.calls)
}

func TestSixthAttemptRateLimitedBeforeCredentials(t *testing.T) {
	fx := newFixture(t, nil)

	body := map[string]string{"email": "admin@draycott.example", "password": "wrong"}
	for i := 0; i < 5; i++ {
		rec := doLogin(t, fx.mux, body, "198.51.100.9")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	require.Equal(t, 5, fx.creds.calls)

	rec := doLogin(t, fx.mux, body, "198.51.100.9")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	var envelope adminauth.Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.Equal(t, adminauth.CodeRateLimit, envelope.Code)
	// the rejected attempt never reached the credential provider
	assert.Equal(t, 5, fx.creds.calls)

	// a different source address is unaffected
	rec = doLogin(t, fx.mux, map[string]string{
		"email":    "admin@draycott.example",
		"password": "correct-horse",
	}, "203.0.113.77")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLowCaptchaScoreRejected(t *testing.T) {
	fx := newFixture(t, scoredCaptcha{score: 0.2})

	rec := doLogin(t, fx.mux, map[string]string{
		"email":        "admin@draycott.example",
		"password":     "correct-horse",
		"captchaToken": "evidence",
	}, "203.0.113.5")

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Zero(t, fx.creds.calls)
}

func TestMeRequiresAuth(t *testing.T) {
	fx := newFixture(t, nil)

	rec := httptest.NewRecorder()
	fx.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/me", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginThenMeThenLogout(t *testing.T) {
	fx := newFixture(t, nil)

	login := doLogin(t, fx.mux, map[string]string{
		"email":    "admin@draycott.example",
		"password": "correct-horse",
	}, "203.0.113.5")
	require.Equal(t, http.StatusOK, login.Code)

	access := cookieByName(t, login, "admin_access_token")
	refresh := cookieByName(t, login, "admin_refresh_token")
	require.NotNil(t, access)
	require.NotNil(t, refresh)

	// me
	req := httptest.NewRequest(http.MethodGet, "/admin/me", nil)
	req.AddCookie(access)
	rec := httptest.NewRecorder()
	fx.mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var profile adminauth.Profile
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&profile))
	assert.Equal(t, "manager", profile.Role)

	// csrf token for the mutating logout
	rec = httptest.NewRecorder()
	fx.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/csrf", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	csrfCookie := cookieByName(t, rec, "csrf_token")
	require.NotNil(t, csrfCookie)
	assert.False(t, csrfCookie.HttpOnly)

	// logout with double-submit
	req = httptest.NewRequest(http.MethodPost, "/admin/logout", nil)
	req.AddCookie(access)
	req.AddCookie(refresh)
	req.AddCookie(csrfCookie)
	req.Header.Set(csrf.HeaderName, csrfCookie.Value)
	rec = httptest.NewRecorder()
	fx.mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "admin_access_token" || cookie.Name == "admin_refresh_token" {
			assert.Negative(t, cookie.MaxAge, "token cookies must be cleared on logout")
		}
	}

	// the revoked access token no longer works
	req = httptest.NewRequest(http.MethodGet, "/admin/me", nil)
	req.AddCookie(access)
	rec = httptest.NewRecorder()
	fx.mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutWithoutCsrfRejected(t *testing.T) {
	fx := newFixture(t, nil)

	rec := httptest.NewRecorder()
	fx.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/logout", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRefreshRotatesCookies(t *testing.T) {
	fx := newFixture(t, nil)

	login := doLogin(t, fx.mux, map[string]string{
		"email":    "admin@draycott.example",
		"password": "correct-horse",
	}, "203.0.113.5")
	refresh := cookieByName(t, login, "admin_refresh_token")
	require.NotNil(t, refresh)

	req := httptest.NewRequest(http.MethodPost, "/admin/refresh", nil)
	req.AddCookie(refresh)
	rec := httptest.NewRecorder()
	fx.mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rotated := cookieByName(t, rec, "admin_refresh_token")
	require.NotNil(t, rotated)
	assert.NotEqual(t, refresh.Value, rotated.Value)

	// the used refresh token is now revoked
	req = httptest.NewRequest(http.MethodPost, "/admin/refresh", nil)
	req.AddCookie(refresh)
	rec = httptest.NewRecorder()
	fx.mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:54321"
	assert.Equal(t, "192.0.2.10", ClientKey(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.8, 10.0.0.1")
	assert.Equal(t, "203.0.113.8", ClientKey(req))
}
