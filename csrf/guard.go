// Package csrf implements double-submit CSRF protection: a random token
// is set as a readable cookie and must be echoed back in a request
// header. A cross-origin attacker can trigger the request but cannot
// read the cookie to forge the matching header.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"time"
)

// HeaderName is the request header carrying the client's echo of the
// CSRF cookie.
const HeaderName = "X-Csrf-Token"

const tokenBytes = 32

// Config controls cookie attributes for issued tokens.
type Config struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Guard issues and verifies double-submit tokens.
type Guard struct {
	config Config
}

// NewGuard creates a Guard, applying defaults for unset fields.
func NewGuard(cfg Config) *Guard {
	if cfg.CookieName == "" {
		cfg.CookieName = "csrf_token"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	return &Guard{config: cfg}
}

// CookieName returns the configured cookie name.
func (g *Guard) CookieName() string {
	return g.config.CookieName
}

// Issue generates a fresh random token.
func (g *Guard) Issue() (string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Verify reports whether the header echo matches the cookie value.
// Both sides are decoded consistently before comparison; any absence,
// decode failure, or mismatch fails verification.
func (g *Guard) Verify(headerValue, cookieValue string) bool {
	if headerValue == "" || cookieValue == "" {
		return false
	}

	header, err := base64.RawURLEncoding.DecodeString(headerValue)
	if err != nil {
		return false
	}
	cookie, err := base64.RawURLEncoding.DecodeString(cookieValue)
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(header, cookie) == 1
}

// Cookie builds the non-HTTP-only cookie carrying token. The client
// reads it to populate the request header; same-site scoping keeps it
// out of cross-origin reach.
func (g *Guard) Cookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     g.config.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(g.config.TTL.Seconds()),
		Secure:   g.config.Secure,
		HttpOnly: false,
		SameSite: http.SameSiteStrictMode,
	}
}
