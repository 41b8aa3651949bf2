package middleware

import (
	"net/http"
	"time"
)

// CookieSpec holds the names and attributes of the token cookies. Both
// token cookies are HTTP-only; Secure is set in production.
type CookieSpec struct {
	AccessName  string
	RefreshName string
	Path        string
	Domain      string
	Secure      bool

	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
}

// AccessCookie builds the HTTP-only access-token cookie.
func (s CookieSpec) AccessCookie(value string) *http.Cookie {
	return s.tokenCookie(s.AccessName, value, s.AccessMaxAge)
}

// RefreshCookie builds the HTTP-only refresh-token cookie.
func (s CookieSpec) RefreshCookie(value string) *http.Cookie {
	return s.tokenCookie(s.RefreshName, value, s.RefreshMaxAge)
}

// Clear expires both token cookies, instructing the client to drop them.
func (s CookieSpec) Clear(w http.ResponseWriter) {
	for _, name := range []string{s.AccessName, s.RefreshName} {
		cookie := s.tokenCookie(name, "", 0)
		cookie.MaxAge = -1
		http.SetCookie(w, cookie)
	}
}

// SetPair sets both token cookies on the response.
func (s CookieSpec) SetPair(w http.ResponseWriter, access, refresh string) {
	http.SetCookie(w, s.AccessCookie(access))
	http.SetCookie(w, s.RefreshCookie(refresh))
}

func (s CookieSpec) tokenCookie(name, value string, maxAge time.Duration) *http.Cookie {
	path := s.Path
	if path == "" {
		path = "/"
	}

	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   s.Domain,
		MaxAge:   int(maxAge.Seconds()),
		Secure:   s.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
