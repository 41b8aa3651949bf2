package httpapi

import (
	"net"
	"net/http"
	"strings"
)

// ClientKey derives the rate-limit identity for a request: the first
// hop of X-Forwarded-For when present (the site runs behind a proxy),
// otherwise the connection's remote address.
func ClientKey(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
