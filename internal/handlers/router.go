package handlers

import (
	"context"
	"net/http"

	"github.com/rs/cors"

	"github.com/nkiryanov/refundpanel/internal/handlers/middleware"
	"github.com/nkiryanov/refundpanel/internal/logger"
	"github.com/nkiryanov/refundpanel/internal/models"
	"github.com/nkiryanov/refundpanel/internal/service/auth"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

type RouterConfig struct {
	// Where browser is sent after login and logout
	PanelURL string

	// Bcrypt hash of the game server key
	// Game API is not mounted if empty
	GameKeyHash string

	// Origins of the panel frontend allowed to call API with credentials
	// CORS headers are not sent if empty
	CORSOrigins []string
}

func NewRouter(
	cfg RouterConfig,
	authService authService,
	refundService refundService,
	playerService playerService,
	logger logger.Logger,
) http.Handler {
	if cfg.PanelURL == "" {
		cfg.PanelURL = "/"
	}

	withAuth := middleware.AuthMiddleware(authService, logger)

	root := http.NewServeMux()

	root.Handle("GET /auth/login", handleLogin(authService, logger))
	root.Handle("GET /auth/discord", handleLogin(authService, logger))
	root.Handle("GET /auth/callback", handleCallback(authService, cfg.PanelURL, logger))
	root.Handle("GET /auth/logout", handleLogout(authService, cfg.PanelURL, logger))

	api := http.NewServeMux()
	api.Handle("GET /me", withAuth(handleAdminMe()))
	api.Handle("GET /players", withAuth(handleListPlayers(playerService, logger)))
	api.Handle("POST /search-player", withAuth(handleSearchPlayer(playerService, logger)))
	api.Handle("POST /create-refund", withAuth(handleCreateRefund(refundService, logger)))
	api.Handle("GET /logs", withAuth(handleListLogs(refundService, logger)))
	api.Handle("POST /claim-refund", withAuth(handleClaimRefund(refundService, logger)))
	root.Handle("/api/", http.StripPrefix("/api", api))

	if cfg.GameKeyHash != "" {
		withGameKey := middleware.GameKeyMiddleware(auth.BcryptHasher{}, cfg.GameKeyHash)

		game := http.NewServeMux()
		game.Handle("GET /refunds/pending", withGameKey(handleGamePendingRefunds(refundService, logger)))
		game.Handle("POST /refunds/{id}/claim", withGameKey(handleGameClaimRefund(refundService, logger)))
		root.Handle("/game/", http.StripPrefix("/game", game))
	}

	mds := []func(http.Handler) http.Handler{
		middleware.LoggerMiddleware(logger),
	}
	if len(cfg.CORSOrigins) > 0 {
		c := cors.New(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost},
			AllowedHeaders:   []string{"Content-Type"},
			AllowCredentials: true,
		})
		mds = append(mds, c.Handler)
	}

	return chain(root, mds...)
}

type authService interface {
	// Start login, return url of identity provider consent page
	LoginURL(w http.ResponseWriter, r *http.Request) (string, error)

	// Finish login and start session
	// Has to return apperrors.ErrInvalidState if state was not issued to this browser
	Callback(ctx context.Context, w http.ResponseWriter, r *http.Request, code string, state string) error

	// Drop session of the request
	Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) error

	// Get request and return admin if it authenticated and authorized
	// Has to return error wrapping apperrors.ErrForbidden if caller is not allowed to act as admin
	Auth(ctx context.Context, r *http.Request) (models.Admin, error)
}

type refundService interface {
	// Has to return apperrors.ErrValidation if draft is not acceptable
	Create(ctx context.Context, draft models.RefundDraft, admin models.Admin) (models.Refund, error)

	// Has to return apperrors.ErrRefundNotClaimable if refund is not pending or not exists
	Claim(ctx context.Context, refundID int64) (models.Refund, error)

	ListAuditTrail(ctx context.Context, limit int) ([]models.AuditEntry, error)
	ListPending(ctx context.Context, playerIdentifier string) ([]models.Refund, error)
}

type playerService interface {
	ListPlayers(ctx context.Context) ([]models.Player, error)
	SearchPlayers(ctx context.Context, search string) ([]models.Player, error)
}
