package repository

import (
	"context"
	"time"

	"github.com/nkiryanov/refundpanel/internal/models"
)

// Refund repository interface
type RefundRepo interface {
	// Create refund in pending status
	// Rows violating table constraints are persistence errors, the draft is validated before
	CreateRefund(ctx context.Context, refund models.Refund) (models.Refund, error)

	// Move refund from pending to claimed
	// Only pending refund may be claimed: otherwise (or if refund not exists) must return apperrors.ErrRefundNotClaimable
	ClaimRefund(ctx context.Context, refundID int64, claimedAt time.Time) (models.Refund, error)

	// Read-back accessor: get refund by id
	// The ledger never reads a refund before changing it, this is for checking committed state
	// If refund not found must return apperrors.ErrRefundNotFound
	GetRefund(ctx context.Context, refundID int64) (models.Refund, error)

	// List pending refunds of the player, oldest first
	ListPending(ctx context.Context, playerIdentifier string) ([]models.Refund, error)
}

// Audit repository interface
// It is append only: there is no way to update or delete events
type AuditRepo interface {
	AppendEvent(ctx context.Context, event models.AuditEvent) (models.AuditEvent, error)

	// List events joined with its refund, most recent first
	ListEntries(ctx context.Context, limit int) ([]models.AuditEntry, error)

	// Read-back accessor: events of one refund in the order they happened
	ListRefundEvents(ctx context.Context, refundID int64) ([]models.AuditEvent, error)
}

// Player directory is read only
type PlayerRepo interface {
	ListPlayers(ctx context.Context, limit int) ([]models.Player, error)
	SearchPlayers(ctx context.Context, search string, limit int) ([]models.Player, error)
}

type Storage interface {
	Refund() RefundRepo
	Audit() AuditRepo
	Player() PlayerRepo

	// Run fn in transaction: commit if fn returns nil, rollback otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}
