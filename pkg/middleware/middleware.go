// Package middleware provides the HTTP middleware used by the auth server:
// bearer-token verification of issued session credentials and per-client
// rate limiting.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/Elvis339/chaum-pedersen-zkp/pkg/jwt"
)

// ContextKey is used for storing values in request context.
type ContextKey string

// ClaimsKey is the context key for verified session-credential claims.
const ClaimsKey ContextKey = "session_claims"

// RequireSession verifies the Authorization bearer token against the
// issuer's JWKS and stores the claims in the request context.
func RequireSession(issuerJWKS jwk.Set, expectedAudience string) func(http.Handler) http.Handler {
	verifier := jwt.NewVerifier(issuerJWKS)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing Authorization header", http.StatusUnauthorized)
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(authHeader, bearerPrefix) {
				http.Error(w, "invalid Authorization header format", http.StatusUnauthorized)
				return
			}
			token := strings.TrimPrefix(authHeader, bearerPrefix)

			claims, err := verifier.Verify(token, expectedAudience)
			if err != nil {
				http.Error(w, fmt.Sprintf("credential verification failed: %v", err), http.StatusUnauthorized)
				return
			}

			if claims.ZK == nil || claims.ZK.Scheme != "chaum-pedersen" {
				http.Error(w, "credential was not issued by a zero-knowledge login", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext extracts verified claims placed by RequireSession.
func ClaimsFromContext(ctx context.Context) (*jwt.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*jwt.Claims)
	return claims, ok
}
