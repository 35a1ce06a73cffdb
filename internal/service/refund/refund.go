// Package refund is the refund ledger: refunds are created pending, claimed once,
// and every transition leaves an event in the audit log.
package refund

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nkiryanov/refundpanel/internal/apperrors"
	"github.com/nkiryanov/refundpanel/internal/models"
	"github.com/nkiryanov/refundpanel/internal/repository"
)

const (
	defaultStoreTimeout = 5 * time.Second

	// Audit trail is never longer than this
	MaxAuditTrail = 50

	claimedDetails = "claimed in-game"
)

type Config struct {
	// Timeout of one ledger operation against storage
	// If not set than default is used
	StoreTimeout time.Duration
}

type Ledger struct {
	storage      repository.Storage
	storeTimeout time.Duration
	now          func() time.Time
}

func NewLedger(cfg Config, storage repository.Storage) *Ledger {
	if cfg.StoreTimeout == 0 {
		cfg.StoreTimeout = defaultStoreTimeout
	}

	return &Ledger{
		storage:      storage,
		storeTimeout: cfg.StoreTimeout,
		now:          time.Now,
	}
}

// Create pending refund on behalf of admin and record 'created' event
// Returns error wrapping apperrors.ErrValidation if draft is not acceptable
func (l *Ledger) Create(ctx context.Context, draft models.RefundDraft, admin models.Admin) (models.Refund, error) {
	refund, err := newRefund(draft, admin)
	if err != nil {
		return models.Refund{}, err
	}
	refund.CreatedAt = l.now()

	ctx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()

	err = l.storage.InTx(ctx, func(s repository.Storage) error {
		refund, err = s.Refund().CreateRefund(ctx, refund)
		if err != nil {
			return err
		}

		_, err = s.Audit().AppendEvent(ctx, models.AuditEvent{
			RefundID:  refund.ID,
			Action:    models.AuditActionCreated,
			Details:   createdDetails(refund),
			Timestamp: refund.CreatedAt,
		})
		return err
	})
	if err != nil {
		return models.Refund{}, fmt.Errorf("failed to create refund: %w", err)
	}

	return refund, nil
}

// Claim pending refund and record 'claimed' event
// Unknown or already claimed refund is reported as apperrors.ErrRefundNotClaimable
func (l *Ledger) Claim(ctx context.Context, refundID int64) (models.Refund, error) {
	ctx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()

	var refund models.Refund
	err := l.storage.InTx(ctx, func(s repository.Storage) error {
		var err error
		refund, err = s.Refund().ClaimRefund(ctx, refundID, l.now())
		if err != nil {
			return err
		}

		_, err = s.Audit().AppendEvent(ctx, models.AuditEvent{
			RefundID:  refund.ID,
			Action:    models.AuditActionClaimed,
			Details:   claimedDetails,
			Timestamp: *refund.ClaimedAt,
		})
		return err
	})
	if err != nil {
		return models.Refund{}, fmt.Errorf("failed to claim refund %d: %w", refundID, err)
	}

	return refund, nil
}

// Most recent audit events with its refunds
// Non positive or too big limit is replaced with MaxAuditTrail
func (l *Ledger) ListAuditTrail(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 || limit > MaxAuditTrail {
		limit = MaxAuditTrail
	}

	ctx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()

	return l.storage.Audit().ListEntries(ctx, limit)
}

// Refunds waiting for the player to claim them in-game
func (l *Ledger) ListPending(ctx context.Context, playerIdentifier string) ([]models.Refund, error) {
	if strings.TrimSpace(playerIdentifier) == "" {
		return nil, fmt.Errorf("%w: player identifier is required", apperrors.ErrValidation)
	}

	ctx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()

	return l.storage.Refund().ListPending(ctx, playerIdentifier)
}

func newRefund(draft models.RefundDraft, admin models.Admin) (models.Refund, error) {
	if strings.TrimSpace(draft.PlayerIdentifier) == "" {
		return models.Refund{}, fmt.Errorf("%w: player identifier is required", apperrors.ErrValidation)
	}

	var grant models.Grant
	switch draft.Kind {
	case models.RefundKindMoney:
		grant = models.MoneyGrant{Amount: draft.Amount}
	case models.RefundKindItem:
		if strings.TrimSpace(draft.ItemName) == "" {
			return models.Refund{}, fmt.Errorf("%w: item name is required", apperrors.ErrValidation)
		}
		grant = models.ItemGrant{Name: draft.ItemName, Quantity: draft.Amount}
	case models.RefundKindVehicle:
		if strings.TrimSpace(draft.VehicleModel) == "" {
			return models.Refund{}, fmt.Errorf("%w: vehicle model is required", apperrors.ErrValidation)
		}
		grant = models.VehicleGrant{Model: draft.VehicleModel, Plate: draft.VehiclePlate}
	default:
		return models.Refund{}, fmt.Errorf("%w: unknown refund type %q", apperrors.ErrValidation, draft.Kind)
	}

	return models.Refund{
		PlayerIdentifier: draft.PlayerIdentifier,
		PlayerName:       draft.PlayerName,
		PlayerDiscord:    optional(draft.PlayerDiscord),
		AdminID:          admin.ExternalID,
		AdminName:        admin.DisplayName,
		Grant:            grant,
		Reason:           optional(draft.Reason),
		Status:           models.RefundStatusPending,
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func createdDetails(r models.Refund) string {
	player := r.PlayerName
	if player == "" {
		player = r.PlayerIdentifier
	}

	reason := "none"
	if r.Reason != nil {
		reason = *r.Reason
	}

	return fmt.Sprintf("%s created %s refund for %s: %s - reason: %s",
		r.AdminName, r.Grant.Kind(), player, grantSummary(r.Grant), reason)
}

func grantSummary(g models.Grant) string {
	switch g := g.(type) {
	case models.MoneyGrant:
		if g.Amount == nil {
			return "unknown"
		}
		return strconv.FormatInt(*g.Amount, 10)
	case models.ItemGrant:
		if g.Quantity == nil {
			return g.Name
		}
		return fmt.Sprintf("%dx %s", *g.Quantity, g.Name)
	case models.VehicleGrant:
		if g.Plate == "" {
			return g.Model
		}
		return fmt.Sprintf("%s (%s)", g.Model, g.Plate)
	default:
		return "unknown"
	}
}

// Parse amount the lenient way the panel always did:
// leading spaces and sign are allowed, digits are read until the first non digit.
// Nothing to read, zero or overflow gives nil.
func ParseAmount(raw string) *int64 {
	s := strings.TrimLeft(raw, " \t\n\r")

	negative := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		negative = s[0] == '-'
		s = s[1:]
	}

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}

	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil || n == 0 {
		return nil
	}
	if negative {
		n = -n
	}

	return &n
}
