package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nkiryanov/refundpanel/internal/db"
	"github.com/nkiryanov/refundpanel/internal/discord"
	"github.com/nkiryanov/refundpanel/internal/handlers"
	"github.com/nkiryanov/refundpanel/internal/logger"
	"github.com/nkiryanov/refundpanel/internal/repository/postgres"
	"github.com/nkiryanov/refundpanel/internal/service/auth"
	"github.com/nkiryanov/refundpanel/internal/service/player"
	"github.com/nkiryanov/refundpanel/internal/service/refund"
	"github.com/nkiryanov/refundpanel/internal/sessionstore"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 5 * time.Second
	storeTimeout      = 5 * time.Second

	sessionCleanupInterval = time.Minute
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger logger.Logger
	pool   *pgxpool.Pool
	redis  *redis.Client

	// Set when sessions are kept in memory and have to be swept
	memoryStore *sessionstore.Memory
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	app := &ServerApp{ListenAddr: c.ListenAddr, logger: logger}

	// Connect to the database and run migrations
	app.pool, err = db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Sessions store
	var store sessionstore.Store
	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{
			Addr:         c.RedisAddr,
			Password:     c.RedisPassword,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			app.Close()
			return nil, fmt.Errorf("error while connecting to redis. Err: %w", err)
		}
		store = sessionstore.NewRedis(app.redis)
	} else {
		logger.Warn("Redis address not set, sessions are kept in memory and lost on restart")
		app.memoryStore = sessionstore.NewMemory()
		store = app.memoryStore
	}

	// Initialize services
	discordClient, err := discord.NewClient(discord.Config{
		ClientID:     c.DiscordClientID,
		ClientSecret: c.DiscordClientSecret,
		RedirectURL:  c.DiscordRedirectURI,
	})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("error while creating discord client. Err: %w", err)
	}

	authorizer, err := auth.NewAuthorizer(discordClient, c.DiscordGuildID, c.DiscordAdminRoleID)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("error while creating authorizer. Err: %w", err)
	}

	authService, err := auth.NewService(auth.Config{
		SecretKey:    c.SecretKey,
		SessionTTL:   c.SessionTTL,
		SecureCookie: c.SecureCookie,
	}, discordClient, authorizer, store)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	storage := postgres.NewStorage(app.pool)
	ledger := refund.NewLedger(refund.Config{StoreTimeout: storeTimeout}, storage)
	playerService := player.NewService(storage.Player(), storeTimeout)

	app.Handler = handlers.NewRouter(
		handlers.RouterConfig{
			PanelURL:    c.PanelURL,
			GameKeyHash: c.GameKeyHash,
			CORSOrigins: c.Origins(),
		},
		authService,
		ledger,
		playerService,
		logger,
	)

	return app, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.Handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	var cleanupStopped <-chan struct{}
	if s.memoryStore != nil {
		cleanupStopped = s.memoryStore.Cleanup(srvCtx, sessionCleanupInterval)
	} else {
		done := make(chan struct{})
		close(done)
		cleanupStopped = done
	}

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed
	<-cleanupStopped

	return err
}

// Close releases db and redis connections
func (s *ServerApp) Close() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", "error", err)
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
}
