package middleware

import (
	"context"
	"net/http"
	"strings"

	"ideavote/internal/domain/auth"
	"ideavote/internal/requestctx"
)

// Auth attaches the bearer token's principal to the request context. Requests
// without a valid token pass through anonymously; route guards decide.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(secret, token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := requestctx.WithPrincipal(r.Context(), requestctx.Principal{
				Subject:    claims.Subject,
				EmployeeID: claims.EmployeeID,
				Email:      claims.Email,
				Name:       claims.Name,
				Role:       claims.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetPrincipal(ctx context.Context) (requestctx.Principal, bool) {
	return requestctx.GetPrincipal(ctx)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header != "" {
		parts := strings.Split(header, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	// EventSource cannot set headers, so the leaderboard stream may pass the
	// token as a query parameter.
	if strings.HasSuffix(r.URL.Path, "/stream") {
		return strings.TrimSpace(r.URL.Query().Get("access_token"))
	}
	return ""
}
