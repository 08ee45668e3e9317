package daemon

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// requireToken wraps next so requests must carry "Authorization: Bearer
// <token>". An empty token disables the check.
func (s *apiServer) requireToken(token string, next http.HandlerFunc) http.HandlerFunc {
	if token == "" {
		return next
	}
	want := []byte(token)
	return func(w http.ResponseWriter, r *http.Request) {
		scheme, presented, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") ||
			subtle.ConstantTimeCompare([]byte(strings.TrimSpace(presented)), want) != 1 {
			w.Header().Set("WWW-Authenticate", `Bearer realm="camreview"`)
			s.writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid bearer token")
			return
		}
		next(w, r)
	}
}
