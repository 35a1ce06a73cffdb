package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/refundpanel/internal/apperrors"
	"github.com/nkiryanov/refundpanel/internal/models"
)

type RefundRepo struct {
	DB DBTX
}

const refundColumns = `id, player_identifier, player_name, player_discord, admin_id, admin_name,
	type, amount, item_name, vehicle_model, vehicle_plate, reason, status, created_at, claimed_at`

const createRefund = `-- name: CreateRefund
INSERT INTO refunds (player_identifier, player_name, player_discord, admin_id, admin_name,
	type, amount, item_name, vehicle_model, vehicle_plate, reason, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING ` + refundColumns

func (r *RefundRepo) CreateRefund(ctx context.Context, refund models.Refund) (models.Refund, error) {
	g, err := flattenGrant(refund.Grant)
	if err != nil {
		return refund, err
	}

	rows, _ := r.DB.Query(ctx, createRefund,
		refund.PlayerIdentifier, refund.PlayerName, refund.PlayerDiscord, refund.AdminID, refund.AdminName,
		g.kind, g.amount, g.itemName, g.vehicleModel, g.vehiclePlate, refund.Reason, models.RefundStatusPending, refund.CreatedAt,
	)
	created, err := pgx.CollectOneRow(rows, rowToRefund)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
			return created, fmt.Errorf("db error: constraint %s violated: %w", pgErr.ConstraintName, err)
		}

		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

// Compare-and-set on status: concurrent claims are serialized by the row lock
// and only the first one sees the row in pending status
const claimRefund = `-- name: ClaimRefund
UPDATE refunds
SET status = 'claimed', claimed_at = $2
WHERE id = $1 AND status = 'pending'
RETURNING ` + refundColumns

func (r *RefundRepo) ClaimRefund(ctx context.Context, refundID int64, claimedAt time.Time) (models.Refund, error) {
	rows, _ := r.DB.Query(ctx, claimRefund, refundID, claimedAt)
	refund, err := pgx.CollectOneRow(rows, rowToRefund)

	switch {
	case err == nil:
		return refund, nil
	case errors.Is(err, pgx.ErrNoRows):
		return refund, apperrors.ErrRefundNotClaimable
	default:
		return refund, fmt.Errorf("db error: %w", err)
	}
}

const getRefund = `-- name: GetRefund
SELECT ` + refundColumns + ` FROM refunds
WHERE id = $1
`

func (r *RefundRepo) GetRefund(ctx context.Context, refundID int64) (models.Refund, error) {
	rows, _ := r.DB.Query(ctx, getRefund, refundID)
	refund, err := pgx.CollectOneRow(rows, rowToRefund)

	switch {
	case err == nil:
		return refund, nil
	case errors.Is(err, pgx.ErrNoRows):
		return refund, apperrors.ErrRefundNotFound
	default:
		return refund, fmt.Errorf("db error: %w", err)
	}
}

const listPending = `-- name: ListPending
SELECT ` + refundColumns + ` FROM refunds
WHERE player_identifier = $1 AND status = 'pending'
ORDER BY created_at ASC, id ASC
`

func (r *RefundRepo) ListPending(ctx context.Context, playerIdentifier string) ([]models.Refund, error) {
	rows, _ := r.DB.Query(ctx, listPending, playerIdentifier)
	refunds, err := pgx.CollectRows(rows, rowToRefund)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return refunds, nil
}

// Refund grant as it stored in the table columns
type grantColumns struct {
	kind         string
	amount       *int64
	itemName     *string
	vehicleModel *string
	vehiclePlate *string
}

func flattenGrant(g models.Grant) (grantColumns, error) {
	switch g := g.(type) {
	case models.MoneyGrant:
		return grantColumns{kind: models.RefundKindMoney, amount: g.Amount}, nil
	case models.ItemGrant:
		return grantColumns{kind: models.RefundKindItem, amount: g.Quantity, itemName: &g.Name}, nil
	case models.VehicleGrant:
		c := grantColumns{kind: models.RefundKindVehicle, vehicleModel: &g.Model}
		if g.Plate != "" {
			c.vehiclePlate = &g.Plate
		}
		return c, nil
	default:
		return grantColumns{}, fmt.Errorf("%w: unknown grant %T", apperrors.ErrValidation, g)
	}
}

func (c grantColumns) grant() (models.Grant, error) {
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}

	switch c.kind {
	case models.RefundKindMoney:
		return models.MoneyGrant{Amount: c.amount}, nil
	case models.RefundKindItem:
		return models.ItemGrant{Name: deref(c.itemName), Quantity: c.amount}, nil
	case models.RefundKindVehicle:
		return models.VehicleGrant{Model: deref(c.vehicleModel), Plate: deref(c.vehiclePlate)}, nil
	default:
		return nil, fmt.Errorf("unknown refund type %q stored", c.kind)
	}
}

func rowToRefund(row pgx.CollectableRow) (models.Refund, error) {
	var rf models.Refund
	var c grantColumns

	err := row.Scan(
		&rf.ID, &rf.PlayerIdentifier, &rf.PlayerName, &rf.PlayerDiscord, &rf.AdminID, &rf.AdminName,
		&c.kind, &c.amount, &c.itemName, &c.vehicleModel, &c.vehiclePlate, &rf.Reason, &rf.Status, &rf.CreatedAt, &rf.ClaimedAt,
	)
	if err != nil {
		return rf, err
	}

	rf.Grant, err = c.grant()
	return rf, err
}
