package http

import "net/http"

// adminAuth guards operator routes with the shared PIN, passed as the
// X-Admin-Pin header.
type adminAuth struct {
	pin string
}

func (a *adminAuth) check(pin string) bool {
	return pin != "" && pin == a.pin
}

func (a *adminAuth) require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pin := r.Header.Get("X-Admin-Pin")
		if pin == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody("pin required"))
			return
		}
		if !a.check(pin) {
			writeJSON(w, http.StatusForbidden, errorBody("wrong pin"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
