package postgres

import (
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/refundpanel/internal/apperrors"
	"github.com/nkiryanov/refundpanel/internal/models"
	"github.com/nkiryanov/refundpanel/internal/repository"
	"github.com/nkiryanov/refundpanel/internal/testutil"
)

func TestAudit(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, fn func(repository.Storage)) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			fn(NewStorage(tx))
		})
	}

	t.Run("AppendEvent", func(t *testing.T) {
		inTx(t, func(storage repository.Storage) {
			refund, err := storage.Refund().CreateRefund(t.Context(), newRefund("ABC123", models.MoneyGrant{}))
			require.NoError(t, err)
			now := time.Now()

			got, err := storage.Audit().AppendEvent(t.Context(), models.AuditEvent{
				RefundID:  refund.ID,
				Action:    models.AuditActionCreated,
				Details:   "created",
				Timestamp: now,
			})

			require.NoError(t, err)
			require.NotZero(t, got.ID)
			require.Equal(t, refund.ID, got.RefundID)
			require.Equal(t, models.AuditActionCreated, got.Action)
			require.Equal(t, "created", got.Details)
			require.WithinDuration(t, now, got.Timestamp, time.Millisecond)
		})
	})

	t.Run("AppendEvent unknown refund fail", func(t *testing.T) {
		inTx(t, func(storage repository.Storage) {
			_, err := storage.Audit().AppendEvent(t.Context(), models.AuditEvent{
				RefundID:  999999,
				Action:    models.AuditActionCreated,
				Timestamp: time.Now(),
			})

			require.NotErrorIs(t, err, apperrors.ErrValidation)
			require.ErrorContains(t, err, "db error: constraint", "foreign key violation expected")
		})
	})

	t.Run("AppendEvent same action twice fail", func(t *testing.T) {
		inTx(t, func(storage repository.Storage) {
			refund, err := storage.Refund().CreateRefund(t.Context(), newRefund("ABC123", models.MoneyGrant{}))
			require.NoError(t, err)
			event := models.AuditEvent{RefundID: refund.ID, Action: models.AuditActionClaimed, Timestamp: time.Now()}
			_, err = storage.Audit().AppendEvent(t.Context(), event)
			require.NoError(t, err)

			_, err = storage.Audit().AppendEvent(t.Context(), event)

			require.NotErrorIs(t, err, apperrors.ErrValidation)
			require.ErrorContains(t, err, "db error: constraint")
		})
	})

	t.Run("ListEntries", func(t *testing.T) {
		inTx(t, func(storage repository.Storage) {
			base := time.Now().Add(-time.Hour)
			for i := range 60 {
				refund, err := storage.Refund().CreateRefund(t.Context(), newRefund(fmt.Sprintf("P%d", i), models.ItemGrant{Name: "bread"}))
				require.NoError(t, err)
				_, err = storage.Audit().AppendEvent(t.Context(), models.AuditEvent{
					RefundID:  refund.ID,
					Action:    models.AuditActionCreated,
					Details:   fmt.Sprintf("event %d", i),
					Timestamp: base.Add(time.Duration(i) * time.Second),
				})
				require.NoError(t, err)
			}

			got, err := storage.Audit().ListEntries(t.Context(), 50)

			require.NoError(t, err)
			require.Len(t, got, 50)
			require.Equal(t, "event 59", got[0].Event.Details, "most recent event first")
			require.Equal(t, "P59", got[0].Refund.PlayerIdentifier, "event joined with its refund")
			require.Equal(t, models.ItemGrant{Name: "bread"}, got[0].Refund.Grant)
			require.Equal(t, "event 10", got[49].Event.Details, "10 oldest events must be cut")
			for i := 1; i < len(got); i++ {
				require.False(t, got[i].Event.Timestamp.After(got[i-1].Event.Timestamp), "events must be sorted descending")
			}
		})
	})

	t.Run("ListRefundEvents", func(t *testing.T) {
		inTx(t, func(storage repository.Storage) {
			refund, err := storage.Refund().CreateRefund(t.Context(), newRefund("ABC123", models.MoneyGrant{}))
			require.NoError(t, err)
			now := time.Now()
			for i, action := range []string{models.AuditActionCreated, models.AuditActionClaimed} {
				_, err := storage.Audit().AppendEvent(t.Context(), models.AuditEvent{
					RefundID:  refund.ID,
					Action:    action,
					Timestamp: now.Add(time.Duration(i) * time.Second),
				})
				require.NoError(t, err)
			}

			got, err := storage.Audit().ListRefundEvents(t.Context(), refund.ID)

			require.NoError(t, err)
			require.Len(t, got, 2)
			require.Equal(t, models.AuditActionCreated, got[0].Action)
			require.Equal(t, models.AuditActionClaimed, got[1].Action)
		})
	})
}
