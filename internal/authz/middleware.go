package authz

import (
	"encoding/json"
	"net/http"
)

// Require returns a middleware that enforces relation on the gateway object.
// An empty relation skips the check.
func Require(c Client, relation string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if relation == "" {
				next.ServeHTTP(w, r)
				return
			}
			allowed, err := Can(r.Context(), c, r, GatewayObject, relation)
			if err != nil {
				forbidden(w, "authorization error")
				return
			}
			if !allowed {
				forbidden(w, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func forbidden(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
