package middleware

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/importexport/internal/logging"
)

type operatorKey struct{}

// Operator returns the operator name attached by APIKeyAuth, or "" when the
// request carried no recognised key.
func Operator(ctx context.Context) string {
	name, _ := ctx.Value(operatorKey{}).(string)
	return name
}

// WithOperator attaches an operator name to ctx.
func WithOperator(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, operatorKey{}, name)
}

// APIKeyAuth returns middleware that validates the X-API-Key header against
// operators, a map from key to operator name. A matching key attaches the
// operator to the request context. If required is false, requests without a
// valid key pass through anonymously.
func APIKeyAuth(required bool, operators map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				if !required {
					next.ServeHTTP(w, r)
					return
				}
				slog.Warn("auth: missing API key",
					"path", r.URL.Path,
					"method", r.Method,
					"ip", ClientIP(r),
				)
				http.Error(w, `{"error":"missing API key","code":"AUTH_MISSING_KEY"}`, http.StatusUnauthorized)
				return
			}

			name, ok := lookupOperator(apiKey, operators)
			if !ok {
				if !required {
					next.ServeHTTP(w, r)
					return
				}
				slog.Warn("auth: invalid API key",
					"path", r.URL.Path,
					"method", r.Method,
					"ip", ClientIP(r),
				)
				http.Error(w, `{"error":"invalid API key","code":"AUTH_INVALID_KEY"}`, http.StatusForbidden)
				return
			}

			noteOperator(r.Context(), name)
			ctx := WithOperator(r.Context(), name)
			ctx = logging.WithLogger(ctx, logging.FromContext(ctx).With("operator", name))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// lookupOperator finds the operator for key.
// Uses constant-time comparison and checks ALL keys to prevent timing attacks.
func lookupOperator(key string, operators map[string]string) (string, bool) {
	var found string
	valid := 0
	for validKey, name := range operators {
		if subtle.ConstantTimeCompare([]byte(key), []byte(validKey)) == 1 {
			found = name
			valid = 1
		}
	}
	return found, valid == 1
}
