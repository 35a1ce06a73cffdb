package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/refundpanel/internal/models"
)

// Audit trail of refunds
// Has no update or delete statements: events are never changed once written
type AuditRepo struct {
	DB DBTX
}

const appendEvent = `-- name: AppendEvent
INSERT INTO refund_events (refund_id, action, details, timestamp)
VALUES ($1, $2, $3, $4)
RETURNING id, refund_id, action, details, timestamp
`

func (r *AuditRepo) AppendEvent(ctx context.Context, event models.AuditEvent) (models.AuditEvent, error) {
	rows, _ := r.DB.Query(ctx, appendEvent, event.RefundID, event.Action, event.Details, event.Timestamp)
	e, err := pgx.CollectOneRow(rows, rowToEvent)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
			return e, fmt.Errorf("db error: constraint %s violated: %w", pgErr.ConstraintName, err)
		}

		return e, fmt.Errorf("db error: %w", err)
	}

	return e, nil
}

const listEntries = `-- name: ListEntries
SELECT
	r.id, r.player_identifier, r.player_name, r.player_discord, r.admin_id, r.admin_name,
	r.type, r.amount, r.item_name, r.vehicle_model, r.vehicle_plate, r.reason, r.status, r.created_at, r.claimed_at,
	e.id, e.refund_id, e.action, e.details, e.timestamp
FROM refund_events e
JOIN refunds r ON r.id = e.refund_id
ORDER BY e.timestamp DESC, e.id DESC
LIMIT $1
`

func (r *AuditRepo) ListEntries(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	rows, _ := r.DB.Query(ctx, listEntries, limit)
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.AuditEntry, error) {
		var entry models.AuditEntry
		var c grantColumns
		rf := &entry.Refund
		e := &entry.Event

		err := row.Scan(
			&rf.ID, &rf.PlayerIdentifier, &rf.PlayerName, &rf.PlayerDiscord, &rf.AdminID, &rf.AdminName,
			&c.kind, &c.amount, &c.itemName, &c.vehicleModel, &c.vehiclePlate, &rf.Reason, &rf.Status, &rf.CreatedAt, &rf.ClaimedAt,
			&e.ID, &e.RefundID, &e.Action, &e.Details, &e.Timestamp,
		)
		if err != nil {
			return entry, err
		}

		rf.Grant, err = c.grant()
		return entry, err
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return entries, nil
}

const listRefundEvents = `-- name: ListRefundEvents
SELECT id, refund_id, action, details, timestamp
FROM refund_events
WHERE refund_id = $1
ORDER BY timestamp ASC, id ASC
`

func (r *AuditRepo) ListRefundEvents(ctx context.Context, refundID int64) ([]models.AuditEvent, error) {
	rows, _ := r.DB.Query(ctx, listRefundEvents, refundID)
	events, err := pgx.CollectRows(rows, rowToEvent)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return events, nil
}

func rowToEvent(row pgx.CollectableRow) (models.AuditEvent, error) {
	var e models.AuditEvent
	err := row.Scan(&e.ID, &e.RefundID, &e.Action, &e.Details, &e.Timestamp)
	return e, err
}
