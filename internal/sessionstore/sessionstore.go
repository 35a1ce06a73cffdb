// Package sessionstore keeps the mapping of opaque session id to the identity provider access token.
// Sessions never reach the refund database.
package sessionstore

import (
	"context"

	"github.com/nkiryanov/refundpanel/internal/models"
)

type Store interface {
	// Save session until its ExpiresAt
	Put(ctx context.Context, session models.Session) error

	// Return not expired session
	// If session not found or expired must return apperrors.ErrSessionNotFound
	Get(ctx context.Context, sessionID string) (models.Session, error)

	// Remove session, it is not an error to delete unknown session
	Delete(ctx context.Context, sessionID string) error
}
