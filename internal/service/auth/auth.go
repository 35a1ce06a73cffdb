package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"golang.org/x/oauth2"

	"github.com/nkiryanov/refundpanel/internal/apperrors"
	"github.com/nkiryanov/refundpanel/internal/models"
	"github.com/nkiryanov/refundpanel/internal/sessionstore"
)

const (
	defaultCookieName = "refundpanel"
	defaultSessionTTL = 7 * 24 * time.Hour

	sessionIDKey = "sid"
	nonceKey     = "nonce"
)

// OAuth calls needed to log admin in
// Implemented by discord.Client
type LoginProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

type Config struct {
	// Secret key to sign cookies and OAuth state
	// Required to be set
	SecretKey string

	// Browser cookie name
	// If not set than default is used
	CookieName string

	// Session lifetime; it never outlives the access token
	// If not set than default is used
	SessionTTL time.Duration

	// Send cookie over https only
	SecureCookie bool
}

// Auth service
// Browser keeps only signed cookie with session id, access token lives in session store
type AuthService struct {
	login      LoginProvider
	authorizer *Authorizer
	state      *StateManager
	store      sessionstore.Store
	cookies    *sessions.CookieStore

	cookieName string
	sessionTTL time.Duration

	now func() time.Time
}

func NewService(cfg Config, login LoginProvider, authorizer *Authorizer, store sessionstore.Store) (*AuthService, error) {
	if login == nil || authorizer == nil || store == nil {
		return nil, errors.New("login provider, authorizer and session store must not be nil")
	}

	state, err := NewStateManager(StateConfig{SecretKey: cfg.SecretKey})
	if err != nil {
		return nil, err
	}

	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = defaultSessionTTL
	}

	cookies := sessions.NewCookieStore([]byte(cfg.SecretKey))
	cookies.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.SecureCookie,
		// Lax, so the cookie comes back with redirect from Discord
		SameSite: http.SameSiteLaxMode,
	}
	cookies.MaxAge(int(cfg.SessionTTL.Seconds()))

	return &AuthService{
		login:      login,
		authorizer: authorizer,
		state:      state,
		store:      store,
		cookies:    cookies,
		cookieName: cfg.CookieName,
		sessionTTL: cfg.SessionTTL,
		now:        time.Now,
	}, nil
}

// Start login: remember nonce in browser cookie and return Discord consent page url
func (s *AuthService) LoginURL(w http.ResponseWriter, r *http.Request) (string, error) {
	// Cookie that could not be decoded is replaced with new one
	session, _ := s.cookies.Get(r, s.cookieName)

	nonce := uuid.NewString()
	state, err := s.state.Generate(nonce)
	if err != nil {
		return "", err
	}

	session.Values[nonceKey] = nonce
	if err := session.Save(r, w); err != nil {
		return "", fmt.Errorf("failed to save cookie session: %w", err)
	}

	return s.login.AuthCodeURL(state), nil
}

// Finish login: verify state, exchange code and start new session
// Returns apperrors.ErrInvalidState if state is not the one issued to this browser
func (s *AuthService) Callback(ctx context.Context, w http.ResponseWriter, r *http.Request, code string, state string) error {
	session, err := s.cookies.Get(r, s.cookieName)
	if err != nil {
		return fmt.Errorf("%w: cookie session could not be decoded", apperrors.ErrInvalidState)
	}

	nonce, _ := session.Values[nonceKey].(string)
	if err := s.state.Verify(state, nonce); err != nil {
		return err
	}

	token, err := s.login.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange code: %w", err)
	}

	now := s.now()
	expiresAt := now.Add(s.sessionTTL)
	if !token.Expiry.IsZero() && token.Expiry.Before(expiresAt) {
		expiresAt = token.Expiry
	}

	// Previous session of this browser is not needed anymore
	if sid, ok := session.Values[sessionIDKey].(string); ok {
		_ = s.store.Delete(ctx, sid)
	}

	sess := models.Session{
		ID:          uuid.NewString(),
		AccessToken: token.AccessToken,
		ExpiresAt:   expiresAt,
	}
	if err := s.store.Put(ctx, sess); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	delete(session.Values, nonceKey)
	session.Values[sessionIDKey] = sess.ID
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to save cookie session: %w", err)
	}

	return nil
}

// Authenticate and authorize request
// Returns error wrapping apperrors.ErrUnauthenticated or apperrors.ErrForbidden
func (s *AuthService) Auth(ctx context.Context, r *http.Request) (models.Admin, error) {
	session, err := s.cookies.Get(r, s.cookieName)
	if err != nil {
		return models.Admin{}, fmt.Errorf("%w: cookie session could not be decoded", apperrors.ErrUnauthenticated)
	}

	sid, _ := session.Values[sessionIDKey].(string)
	if sid == "" {
		return models.Admin{}, fmt.Errorf("%w: no session", apperrors.ErrUnauthenticated)
	}

	sess, err := s.store.Get(ctx, sid)
	if err != nil {
		return models.Admin{}, fmt.Errorf("%w: %w", apperrors.ErrUnauthenticated, err)
	}

	return s.authorizer.Authorize(ctx, sess.AccessToken)
}

// Drop session from store and browser
func (s *AuthService) Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	session, _ := s.cookies.Get(r, s.cookieName)

	if sid, ok := session.Values[sessionIDKey].(string); ok {
		if err := s.store.Delete(ctx, sid); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
	}

	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to save cookie session: %w", err)
	}

	return nil
}
