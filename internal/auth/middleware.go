package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/cashflow-ai/cashflow/internal/platform/httpx"
	"github.com/cashflow-ai/cashflow/internal/shared"
)

// TokenResolver maps bearer tokens to user ids.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (uuid.UUID, error)
}

// RequireUser rejects requests without a valid bearer token and stores the user id in context.
func RequireUser(resolver TokenResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "bearer token required")
				return
			}
			userID, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				if !errors.Is(err, shared.ErrUnauthorized) && logger != nil {
					logger.Error("resolve bearer token", slog.Any("error", err))
				}
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithUserID(r.Context(), userID)))
		})
	}
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
