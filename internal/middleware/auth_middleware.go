package middleware

import (
	"context"
	"net/http"
	"strings"

	"whiteboard-sync-server/pkg/jwt"
	"whiteboard-sync-server/pkg/response"
)

type contextKey string

const OwnerIDKey contextKey = "ownerID"

// AuthMiddleware requires a valid bearer token and stores the account id it
// carries as the request's owner id.
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ownerID, ok := bearerOwner(r, jwtSecret)
			if !ok {
				response.Unauthorized(w, "Invalid or missing credentials")
				return
			}

			ctx := context.WithValue(r.Context(), OwnerIDKey, ownerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthMiddleware resolves the owner id when a valid bearer token is
// present and lets the request through as a guest (empty owner id) otherwise.
// Document and sync routes use this: no identity means the local fallback
// store, never a rejection.
func OptionalAuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ownerID, ok := bearerOwner(r, jwtSecret)
			if !ok {
				ownerID = ""
			}

			ctx := context.WithValue(r.Context(), OwnerIDKey, ownerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerOwner(r *http.Request, jwtSecret string) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}

	claims, err := jwt.ValidateToken(parts[1], jwtSecret)
	if err != nil {
		return "", false
	}

	return claims.UserID, true
}

func GetOwnerID(r *http.Request) string {
	ownerID, ok := r.Context().Value(OwnerIDKey).(string)
	if !ok {
		return ""
	}
	return ownerID
}
