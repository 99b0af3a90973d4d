package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/AnthonyGillesRudolfo/Siniestros-Gateway/internal/claims"
	"github.com/AnthonyGillesRudolfo/Siniestros-Gateway/internal/upstream"
)

// WithCORS allows any origin, method and header, with credentials.
// Preflight requests are answered with 204.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		if origin := r.Header.Get("Origin"); origin != "" {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		} else {
			h.Set("Access-Control-Allow-Origin", "*")
		}
		if r.Method == http.MethodOptions {
			methods := r.Header.Get("Access-Control-Request-Method")
			if methods == "" {
				methods = "GET,POST,OPTIONS"
			}
			h.Set("Access-Control-Allow-Methods", methods)
			if headers := r.Header.Get("Access-Control-Request-Headers"); headers != "" {
				h.Set("Access-Control-Allow-Headers", headers)
			} else {
				h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Principal")
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail any) {
	writeJSON(w, status, map[string]any{"detail": detail})
}

// errorStatus maps a core failure to its HTTP status. Without typed errors
// every failure is a 500.
func errorStatus(err error, typed bool) int {
	if !typed {
		return http.StatusInternalServerError
	}
	var notFound *upstream.NotFoundError
	switch {
	case claims.IsValidation(err):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
