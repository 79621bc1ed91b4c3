package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"go-identity-service/internal/model"
	"go-identity-service/internal/service"
)

type tokenVerifier interface {
	VerifyToken(tokenString string) (*service.Claims, error)
}

// AuthedHandler receives the verified claims as an explicit parameter rather
// than via request context, so every authenticated handler states its
// dependency on the caller's identity in its signature.
type AuthedHandler func(w http.ResponseWriter, r *http.Request, claims *service.Claims)

type AuthMiddleware struct {
	verifier tokenVerifier
}

func NewAuthMiddleware(verifier tokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// RequireAuth verifies the bearer token and invokes next with its claims.
func (m *AuthMiddleware) RequireAuth(next AuthedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			writeAuthFailure(w, http.StatusUnauthorized, "Missing or invalid authorization header")
			return
		}

		claims, err := m.verifier.VerifyToken(strings.TrimSpace(header[7:]))
		if err != nil {
			// The token error taxonomy stays internal; clients see a
			// uniform unauthorized response.
			writeAuthFailure(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		next(w, r, claims)
	}
}

// RequireRole gates a handler on a role claim, on top of RequireAuth.
func (m *AuthMiddleware) RequireRole(role string, next AuthedHandler) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request, claims *service.Claims) {
		if !claims.HasRole(role) {
			writeAuthFailure(w, http.StatusForbidden, "Insufficient permissions")
			return
		}
		next(w, r, claims)
	})
}

func writeAuthFailure(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.AuthResponse{
		Success: false,
		Message: message,
	})
}
