package middleware

import (
	"net/http"

	"go.uber.org/zap"

	adminauth "github.com/draycottmotors/adminauth"
	"github.com/draycottmotors/adminauth/csrf"
	"github.com/draycottmotors/adminauth/metrics"
)

// RequireCsrf enforces the double-submit check on mutating requests.
// Safe methods pass through untouched.
func RequireCsrf(guard *csrf.Guard, m *metrics.Metrics, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get(csrf.HeaderName)

			var cookieValue string
			if cookie, err := r.Cookie(guard.CookieName()); err == nil {
				cookieValue = cookie.Value
			}

			if !guard.Verify(header, cookieValue) {
				m.ObserveCsrfFailure()
				log.Info("csrf verification failed",
					zap.String("path", r.URL.Path),
					zap.Bool("header_present", header != ""),
					zap.Bool("cookie_present", cookieValue != ""),
				)
				WriteError(w, http.StatusForbidden, adminauth.CodeAuthFailed, "csrf verification failed")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
