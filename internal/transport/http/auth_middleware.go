package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	obsmw "secretdrop/internal/observability/middleware"
	"secretdrop/internal/service"

	"github.com/google/uuid"
)

// Small local key so we don't import another package for one value.
type userIDKey struct{}

func contextWithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

func UserIDFrom(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(userIDKey{}).(uuid.UUID)
	return v, ok
}

// Authenticator rejects requests without a valid bearer token and stores the
// authenticated user id in the request context.
func Authenticator(tokens *service.Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("Authorization")
			if !strings.HasPrefix(strings.ToLower(raw), "bearer ") {
				writeError(w, http.StatusUnauthorized, "Access denied")
				return
			}
			userID, err := tokens.Verify(strings.TrimSpace(raw[len("Bearer "):]))
			if err != nil {
				slog.Warn("auth invalid token",
					"error", err,
					"request_id", obsmw.RequestIDFromContext(r.Context()),
				)
				writeError(w, http.StatusForbidden, "Invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(contextWithUserID(r.Context(), userID)))
		})
	}
}
