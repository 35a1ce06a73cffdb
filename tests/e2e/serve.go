package e2e

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/refundpanel/internal/discord"
	"github.com/nkiryanov/refundpanel/internal/handlers"
	"github.com/nkiryanov/refundpanel/internal/logger"
	"github.com/nkiryanov/refundpanel/internal/repository/postgres"
	"github.com/nkiryanov/refundpanel/internal/service/auth"
	"github.com/nkiryanov/refundpanel/internal/service/player"
	"github.com/nkiryanov/refundpanel/internal/service/refund"
	"github.com/nkiryanov/refundpanel/internal/sessionstore"
	"github.com/nkiryanov/refundpanel/internal/testutil"
)

const (
	GameKey = "game-key"

	// Panel lands on this page after login
	PanelPath = "/api/me"
)

type Env struct {
	URL     string
	Discord *FakeDiscord
	Ledger  *refund.Ledger
}

// New browser with own cookies, it follows redirects like real one
func (e Env) Browser(t *testing.T) *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

// Create db transaction and run server in with that connection (one connection cause one transaction)
// The created transaction passed to inner function: so, you can safely use testutil.InTx with it
func ServeWithTx(dbpool *pgxpool.Pool, t *testing.T, fn func(tx pgx.Tx, env Env)) {
	testutil.InTx(dbpool, t, func(tx pgx.Tx) {
		fakeDiscord := NewFakeDiscord(t)

		// Router is set after server started: Discord has to know where to redirect back
		var router http.Handler
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			router.ServeHTTP(w, r)
		}))
		defer srv.Close()

		discordClient, err := discord.NewClient(discord.Config{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  srv.URL + "/auth/callback",
			BaseURL:      fakeDiscord.URL,
		})
		require.NoError(t, err)

		authorizer, err := auth.NewAuthorizer(discordClient, GuildID, AdminRoleID)
		require.NoError(t, err)

		as, err := auth.NewService(auth.Config{SecretKey: "test-secret"}, discordClient, authorizer, sessionstore.NewMemory())
		require.NoError(t, err, "auth service starting error")

		storage := postgres.NewStorage(tx)
		ledger := refund.NewLedger(refund.Config{}, storage)
		ps := player.NewService(storage.Player(), time.Second)

		gameKeyHash, err := auth.BcryptHasher{}.Hash(GameKey)
		require.NoError(t, err)

		router = handlers.NewRouter(
			handlers.RouterConfig{PanelURL: srv.URL + PanelPath, GameKeyHash: gameKeyHash},
			as,
			ledger,
			ps,
			logger.NewNoOpLogger(),
		)

		fn(tx, Env{URL: srv.URL, Discord: fakeDiscord, Ledger: ledger})
	})
}
