package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nkiryanov/refundpanel/internal/apperrors"
)

const (
	defaultStateTTL      = 10 * time.Minute
	defaultSigningMethod = "HS256"
)

// Claims of OAuth state parameter
// Nonce is also kept in browser cookie session, so state could not be used by other browser
type StateClaims struct {
	jwt.RegisteredClaims
	Nonce string `json:"nonce"`
}

type StateConfig struct {
	// Secret key to sign state
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string

	// State lifetime, user has to pass Discord consent page in this time
	// If not set than default is used
	TTL time.Duration
}

// Issue and verify OAuth state
type StateManager struct {
	key string
	alg jwt.SigningMethod
	ttl time.Duration
}

func NewStateManager(cfg StateConfig) (*StateManager, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	if cfg.TTL == 0 {
		cfg.TTL = defaultStateTTL
	}

	alg := jwt.GetSigningMethod(cfg.Alg)
	if alg == nil {
		return nil, fmt.Errorf("unknown signing method %q", cfg.Alg)
	}

	return &StateManager{
		key: cfg.SecretKey,
		alg: alg,
		ttl: cfg.TTL,
	}, nil
}

// Generate signed state bound to nonce
func (m *StateManager) Generate(nonce string) (string, error) {
	now := time.Now().Truncate(time.Second)

	token := jwt.NewWithClaims(
		m.alg,
		StateClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			},
			Nonce: nonce,
		},
	)

	state, err := token.SignedString([]byte(m.key))
	if err != nil {
		return "", fmt.Errorf("error while signing state. Err: %w", err)
	}

	return state, nil
}

// Parse and validate state and check it was issued for the nonce
func (m *StateManager) Verify(state string, nonce string) error {
	if nonce == "" {
		return fmt.Errorf("%w: no login nonce", apperrors.ErrInvalidState)
	}

	claims := &StateClaims{}
	_, err := jwt.ParseWithClaims(
		state,
		claims,
		func(t *jwt.Token) (any, error) {
			return []byte(m.key), nil
		},
		jwt.WithValidMethods([]string{m.alg.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidState, err)
	}

	if claims.Nonce != nonce {
		return fmt.Errorf("%w: nonce mismatch", apperrors.ErrInvalidState)
	}

	return nil
}
