package server

import (
	"net/http"
	"strconv"
	"strings"
)

const corsMaxAge = 10 * 60

// corsPolicy allows browser calls from the configured frontend origins.
// A "*" entry allows any origin but never with credentials.
type corsPolicy struct {
	origins  map[string]struct{}
	allowAny bool
}

func newCORSPolicy(origins []string) corsPolicy {
	policy := corsPolicy{origins: map[string]struct{}{}}
	for _, origin := range origins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		switch origin {
		case "":
		case "*":
			policy.allowAny = true
		default:
			policy.origins[strings.ToLower(origin)] = struct{}{}
		}
	}
	return policy
}

func (p corsPolicy) allowed(origin string) bool {
	if p.allowAny {
		return true
	}
	_, ok := p.origins[strings.ToLower(origin)]
	return ok
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Add("Vary", "Origin")
		if !s.cors.allowed(origin) {
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if s.cors.allowAny {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Confirm")
			w.Header().Set("Access-Control-Max-Age", strconv.Itoa(corsMaxAge))
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
