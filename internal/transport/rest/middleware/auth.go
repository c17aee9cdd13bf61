package middleware

import (
	"context"
	"net/http"
	"strings"
	"surveyflow/internal/model"
	"surveyflow/internal/service"
)

type contextKey string

const ownerKey contextKey = "owner"

// AuthMiddleware provides JWT authentication middleware
type AuthMiddleware struct {
	authSvc *service.AuthService
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(authSvc *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authSvc: authSvc}
}

// RequireOwner validates the owner JWT from the Authorization header
func (m *AuthMiddleware) RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			writeUnauthorized(w, "missing authorization header")
			return
		}

		claims, err := m.authSvc.ValidateOwnerToken(token)
		if err != nil {
			writeUnauthorized(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), ownerKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetOwner extracts the authenticated owner from context
func GetOwner(ctx context.Context) *model.OwnerClaims {
	if v, ok := ctx.Value(ownerKey).(*model.OwnerClaims); ok {
		return v
	}
	return nil
}

// WithOwner stores claims in ctx the way RequireOwner does
func WithOwner(ctx context.Context, claims *model.OwnerClaims) context.Context {
	return context.WithValue(ctx, ownerKey, claims)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + message + `","code":"UNAUTHORIZED"}`))
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
