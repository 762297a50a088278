package middleware

import (
	"context"
	"net/http"
)

const (
	// APIKeyKey is the context key for the caller-supplied provider credential.
	APIKeyKey ContextKey = "provider_api_key"

	// APIKeyHeader carries the provider credential on each request.
	APIKeyHeader = "X-Api-Key"
)

// ProviderKey extracts the provider credential header into the request
// context. Presence is not enforced here; the gateway classifies a missing
// key as a credential error only on operations that need one.
func ProviderKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get(APIKeyHeader); key != "" {
			ctx := context.WithValue(r.Context(), APIKeyKey, key)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// GetProviderKey gets the provider credential from context.
func GetProviderKey(ctx context.Context) string {
	if v := ctx.Value(APIKeyKey); v != nil {
		return v.(string)
	}
	return ""
}
