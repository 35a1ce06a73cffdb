package handlers

import (
	"errors"
	"net/http"

	"github.com/nkiryanov/refundpanel/internal/apperrors"
	"github.com/nkiryanov/refundpanel/internal/handlers/adminctx"
	"github.com/nkiryanov/refundpanel/internal/handlers/render"
	"github.com/nkiryanov/refundpanel/internal/logger"
)

func handleLogin(authService authService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		url, err := authService.LoginURL(w, r)
		if err != nil {
			l.Error("Failed to start login", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, url, http.StatusTemporaryRedirect)
	})
}

func handleCallback(authService authService, panelURL string, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		// User declined consent or Discord failed
		if e := q.Get("error"); e != "" {
			l.Info("Login declined", "error", e, "description", q.Get("error_description"))
			render.ServiceError(w, "Login failed", http.StatusBadRequest)
			return
		}

		code := q.Get("code")
		if code == "" {
			render.ServiceError(w, "Missing code", http.StatusBadRequest)
			return
		}

		err := authService.Callback(r.Context(), w, r, code, q.Get("state"))

		switch {
		case err == nil:
			http.Redirect(w, r, panelURL, http.StatusTemporaryRedirect)
		case errors.Is(err, apperrors.ErrInvalidState):
			l.Warn("Login with invalid state", "error", err)
			render.ServiceError(w, "Invalid state", http.StatusBadRequest)
		default:
			l.Error("Failed to finish login", "error", err)
			render.ServiceError(w, "Login failed", http.StatusBadRequest)
		}
	})
}

func handleLogout(authService authService, panelURL string, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := authService.Logout(r.Context(), w, r)
		if err != nil {
			l.Error("Failed to logout", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, panelURL, http.StatusTemporaryRedirect)
	})
}

func handleAdminMe() http.Handler {
	type response struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin, _ := adminctx.FromContext(r.Context())
		render.JSON(w, response{ID: admin.ExternalID, Name: admin.DisplayName})
	})
}
