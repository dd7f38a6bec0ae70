package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/mekedron/otter-menusync/internal/access"
)

type roleKey struct{}

// RoleFrom returns the role attached by the auth middleware.
func RoleFrom(ctx context.Context) (access.Role, bool) {
	role, ok := ctx.Value(roleKey{}).(access.Role)
	return role, ok
}

// authenticate resolves the bearer token to a role. Browsers cannot set
// headers on WebSocket upgrades, so ?token= is accepted as well.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		role, ok := s.cfg.Tokens.Lookup(token)
		if !ok {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), roleKey{}, role)))
	})
}

func require(capability access.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := RoleFrom(r.Context())
			if !ok || !role.Can(capability) {
				respondError(w, http.StatusForbidden, "role lacks "+capability.String())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
