package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const providerIDKey contextKey = "providerID"

// ProviderJWT enforces an HMAC-signed JWT on provider endpoints. The token's
// sub claim carries the provider UUID, which is placed on the request
// context; handlers never parse tokens themselves.
func ProviderJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, "auth disabled", http.StatusUnauthorized)
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(auth, "Bearer ")
			claims := jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			providerID, err := uuid.Parse(claims.Subject)
			if err != nil {
				http.Error(w, "invalid subject", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), providerIDKey, providerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ProviderIDFromContext returns the authenticated provider ID if present.
func ProviderIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(providerIDKey).(uuid.UUID)
	return id, ok
}

// WithProviderID injects a provider ID, used by handler tests.
func WithProviderID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, providerIDKey, id)
}
