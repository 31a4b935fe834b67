package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/warden-hq/warden/internal/platform/httpx"
	"github.com/warden-hq/warden/internal/shared"
)

// RequirePrincipal resolves the acting principal from the Authorization
// header and attaches it to the request context. Requests without a valid
// bearer token are rejected; there is no ambient current-user state
// anywhere below this middleware.
func RequirePrincipal(service *Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", shared.ErrTokenMissing.Error())
				return
			}
			principal, err := service.ResolvePrincipal(r.Context(), token)
			if err != nil {
				if logger != nil {
					logger.Debug("principal resolution failed", slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", shared.ErrTokenInvalid.Error())
				return
			}
			ctx := shared.ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
