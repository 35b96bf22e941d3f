package server

import (
	"context"
	"net/http"

	"github.com/tjfontaine/replyloop/internal/auth"
)

type clientContextKey struct{}

// AuthMiddleware validates bearer API keys and injects the matching client
// into the request context. An empty authenticator disables the check.
func AuthMiddleware(authenticator *auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if authenticator.Empty() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey, err := auth.ExtractAPIKey(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "authentication_error", err.Error())
				return
			}

			c, err := authenticator.ValidateAPIKey(apiKey)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "authentication_error", "Invalid API key")
				return
			}

			AddLogField(r.Context(), "client", c.Description)
			ctx := context.WithValue(r.Context(), clientContextKey{}, c)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClient retrieves the authenticated client from context.
// Returns nil if the request was not authenticated.
func GetClient(ctx context.Context) *auth.Client {
	if c, ok := ctx.Value(clientContextKey{}).(*auth.Client); ok {
		return c
	}
	return nil
}
