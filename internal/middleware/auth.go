package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"textbook-gateway/internal/models"
)

type contextKey string

const TokenKey contextKey = "bearer_token"

// BearerToken extracts the token from an "Authorization: Bearer" header.
// The gateway never decodes it; it is only forwarded.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

// RequireBearer rejects requests without a bearer token and attaches the
// token to the request context.
func RequireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", r)
			return
		}
		ctx := context.WithValue(r.Context(), TokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetToken returns the token attached by RequireBearer.
func GetToken(ctx context.Context) string {
	token, _ := ctx.Value(TokenKey).(string)
	return token
}

func writeError(w http.ResponseWriter, status int, code, message string, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: chimiddleware.GetReqID(r.Context()),
	})
}
