package httpapi

import (
	"net/http"
	"strings"
)

// NewDevAuthMiddleware is a local/dev auth shim for station deployments that
// sit behind the association's network. It accepts an explicit operator
// subject via X-Operator-Subject and stores it in request context; if the
// header is absent it falls back to defaultSubject (if provided).
//
// A real deployment fronts this API with the association's SSO proxy, which
// injects the same header after authenticating the operator.
func NewDevAuthMiddleware(defaultSubject string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Health endpoint stays unauthenticated for infra checks.
			if r.URL.Path == "/healthz" {
				next.ServeHTTP(w, r)
				return
			}

			sub := strings.TrimSpace(r.Header.Get("X-Operator-Subject"))
			if sub == "" {
				sub = strings.TrimSpace(defaultSubject)
			}
			if sub == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing operator subject (set X-Operator-Subject)", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), sub)))
		})
	}
}
