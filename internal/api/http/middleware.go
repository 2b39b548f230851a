package http

import (
	"net/http"
	"strings"

	"easymed-admin-backend/internal/authority"
	"easymed-admin-backend/internal/security"
)

// AuthMiddleware guards authenticated routes. A token is accepted only while
// the authority still considers its subject the current session, so tokens
// die on logout or process restart without any extra session state.
type AuthMiddleware struct {
	authority *authority.Authority
	tokens    security.TokenManager
}

func NewAuthMiddleware(auth *authority.Authority, tokens security.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{
		authority: auth,
		tokens:    tokens,
	}
}

func (m *AuthMiddleware) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := extractBearerToken(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "authorization token is not provided"})
			return
		}

		claims, err := m.tokens.ValidateToken(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid token"})
			return
		}

		current := m.authority.CurrentAdmin()
		if !m.authority.IsAuthenticated() || current == nil || current.ID != claims.AdminID {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "session is no longer active"})
			return
		}

		next(w, r)
	}
}

func extractBearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" {
		return "", false
	}
	return token, true
}
