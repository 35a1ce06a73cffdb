package middleware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/refundpanel/internal/apperrors"
	"github.com/nkiryanov/refundpanel/internal/handlers/adminctx"
	"github.com/nkiryanov/refundpanel/internal/models"
)

// Allow to use a function as auth service
type authFunc func(ctx context.Context, r *http.Request) (models.Admin, error)

func (f authFunc) Auth(ctx context.Context, r *http.Request) (models.Admin, error) {
	return f(ctx, r)
}

type warnFunc func(string, ...any)

func (f warnFunc) Warn(msg string, v ...any) { f(msg, v...) }

func TestAuthMiddleware(t *testing.T) {
	// Simple handler that try to get admin from context
	// If ok write its name to response
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Must always be true cause middleware has to set admin to context or write error to response
		admin, ok := adminctx.FromContext(r.Context())
		require.True(t, ok)

		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(admin.DisplayName))
		require.NoError(t, err, "should write admin name to response")
	})

	get := func(t *testing.T, h http.Handler) (int, string) {
		srv := httptest.NewServer(h)
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/test")
		require.NoError(t, err, "should make request to test server")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err, "should read response body")
		defer resp.Body.Close() // nolint:errcheck

		return resp.StatusCode, string(body)
	}

	t.Run("auth ok", func(t *testing.T) {
		warned := 0
		middleware := AuthMiddleware(
			authFunc(func(ctx context.Context, r *http.Request) (models.Admin, error) {
				return models.Admin{ExternalID: "1", DisplayName: "staff"}, nil
			}),
			warnFunc(func(string, ...any) { warned++ }),
		)

		code, body := get(t, middleware(handler))

		require.Equalf(t, http.StatusOK, code, "should return status OK. Resp: %s", body)
		require.Equal(t, "staff", body, "should return admin name in response")
		require.Zero(t, warned, "nothing to warn about")
	})

	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedBody string
	}{
		{
			name:         "unauthenticated",
			err:          fmt.Errorf("%w: no session", apperrors.ErrUnauthenticated),
			expectedCode: http.StatusUnauthorized,
			expectedBody: `{"error": "service_error", "message": "Unauthorized"}`,
		},
		{
			name:         "not a guild member",
			err:          fmt.Errorf("%w: %w", apperrors.ErrForbidden, apperrors.ErrNotGuildMember),
			expectedCode: http.StatusForbidden,
			expectedBody: `{"error": "service_error", "message": "Forbidden"}`,
		},
		{
			name:         "missing role",
			err:          fmt.Errorf("%w: %w", apperrors.ErrForbidden, apperrors.ErrMissingRole),
			expectedCode: http.StatusForbidden,
			expectedBody: `{"error": "service_error", "message": "Forbidden"}`,
		},
		{
			name:         "unexpected error",
			err:          errors.New("redis is down"),
			expectedCode: http.StatusUnauthorized,
			expectedBody: `{"error": "service_error", "message": "Unauthorized"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warned := 0
			middleware := AuthMiddleware(
				authFunc(func(ctx context.Context, r *http.Request) (models.Admin, error) {
					return models.Admin{}, tt.err
				}),
				warnFunc(func(string, ...any) { warned++ }),
			)

			code, body := get(t, middleware(handler))

			require.Equalf(t, tt.expectedCode, code, "not expected status. Resp: %s", body)
			require.JSONEq(t, tt.expectedBody, body)
			require.Equal(t, 1, warned, "failure has to be logged")
		})
	}
}
