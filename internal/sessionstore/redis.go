package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nkiryanov/refundpanel/internal/apperrors"
	"github.com/nkiryanov/refundpanel/internal/models"
)

const defaultKeyPrefix = "refundpanel:session:"

// Store sessions in redis, expiration is handled by key TTL
type Redis struct {
	client    redis.UniversalClient
	keyPrefix string
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{
		client:    client,
		keyPrefix: defaultKeyPrefix,
	}
}

type redisSession struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (r *Redis) key(sessionID string) string {
	return r.keyPrefix + sessionID
}

func (r *Redis) Put(ctx context.Context, session models.Session) error {
	if session.ID == "" {
		return fmt.Errorf("session id must not be empty")
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired at %s", session.ExpiresAt)
	}

	value, err := json.Marshal(redisSession{AccessToken: session.AccessToken, ExpiresAt: session.ExpiresAt})
	if err != nil {
		return fmt.Errorf("session encode error: %w", err)
	}

	err = r.client.Set(ctx, r.key(session.ID), value, ttl).Err()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}

	return nil
}

func (r *Redis) Get(ctx context.Context, sessionID string) (models.Session, error) {
	value, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return models.Session{}, apperrors.ErrSessionNotFound
	case err != nil:
		return models.Session{}, fmt.Errorf("redis error: %w", err)
	}

	var stored redisSession
	if err := json.Unmarshal(value, &stored); err != nil {
		return models.Session{}, fmt.Errorf("session decode error: %w", err)
	}

	session := models.Session{ID: sessionID, AccessToken: stored.AccessToken, ExpiresAt: stored.ExpiresAt}

	// Key TTL has millisecond precision, so double check
	if session.Expired(time.Now()) {
		return models.Session{}, apperrors.ErrSessionNotFound
	}

	return session, nil
}

func (r *Redis) Delete(ctx context.Context, sessionID string) error {
	err := r.client.Del(ctx, r.key(sessionID)).Err()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}
