package server

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"careercatalyst/internal/api"
	"careercatalyst/internal/models"
)

// withAuth resolves the session behind a request, if any, and guards admin
// routes with the operator token. Routes decide themselves whether an
// anonymous caller is acceptable.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/admin/") {
			if !s.adminAllowed(r) {
				s.writeErrorReq(w, r, http.StatusForbidden, forbidden(fmt.Errorf("admin token required")))
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		token, authType := requestToken(r)
		if token == "" || s.authService == nil {
			next.ServeHTTP(w, r)
			return
		}
		principal, err := s.authService.AuthenticateSessionToken(r.Context(), token, time.Now().UTC())
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		if principal == nil {
			if authType == authTypeBearer {
				s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("invalid or expired session")))
				return
			}
			// A stale cookie is treated as no session so public routes keep working.
			next.ServeHTTP(w, r)
			return
		}
		ctx := contextWithAuthPrincipal(r.Context(), authPrincipal{AuthType: authType, Principal: *principal})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) adminAllowed(r *http.Request) bool {
	if s.adminToken == "" {
		return false
	}
	provided := strings.TrimSpace(r.Header.Get(api.AdminTokenHeader))
	return subtle.ConstantTimeCompare([]byte(provided), []byte(s.adminToken)) == 1
}

// requirePrincipal writes 401 and reports false for anonymous requests.
func (s *Server) requirePrincipal(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	principal, ok := authPrincipalFromContext(r.Context())
	if !ok {
		s.writeErrorReq(w, r, http.StatusUnauthorized, unauthorized(fmt.Errorf("login required")))
		return models.Principal{}, false
	}
	return principal.Principal, true
}

// requireKind is requirePrincipal restricted to the given account kinds.
func (s *Server) requireKind(w http.ResponseWriter, r *http.Request, kinds ...models.AccountKind) (models.Principal, bool) {
	principal, ok := s.requirePrincipal(w, r)
	if !ok {
		return principal, false
	}
	for _, kind := range kinds {
		if principal.Kind == kind {
			return principal, true
		}
	}
	s.writeErrorReq(w, r, http.StatusForbidden, forbidden(fmt.Errorf("not allowed for %s accounts", principal.Kind)))
	return principal, false
}

func requestToken(r *http.Request) (string, string) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > len("bearer ") && strings.EqualFold(header[:len("bearer ")], "bearer ") {
		return strings.TrimSpace(header[len("bearer "):]), authTypeBearer
	}
	if token := sessionTokenFromRequest(r); token != "" {
		return token, authTypeSession
	}
	return "", ""
}

func sessionTokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

func requestScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if proto := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")); proto != "" {
		return strings.ToLower(proto)
	}
	return "http"
}
