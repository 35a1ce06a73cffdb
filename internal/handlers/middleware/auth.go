package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/nkiryanov/refundpanel/internal/apperrors"
	"github.com/nkiryanov/refundpanel/internal/handlers/adminctx"
	"github.com/nkiryanov/refundpanel/internal/handlers/render"
	"github.com/nkiryanov/refundpanel/internal/models"
)

type authService interface {
	Auth(ctx context.Context, r *http.Request) (models.Admin, error)
}

type warnLogger interface {
	Warn(msg string, args ...any)
}

// Let only authorized admins in
// Forbidden callers get 403, anything else that failed is 401
func AuthMiddleware(as authService, l warnLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			admin, err := as.Auth(r.Context(), r)

			switch {
			case err == nil:
				ctx := adminctx.New(r.Context(), admin)
				next.ServeHTTP(w, r.WithContext(ctx))
			case errors.Is(err, apperrors.ErrForbidden):
				l.Warn("admin access denied", "uri", r.RequestURI, "error", err)
				render.ServiceError(w, "Forbidden", http.StatusForbidden)
			default:
				l.Warn("admin not authenticated", "uri", r.RequestURI, "error", err)
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
			}
		})
	}
}
