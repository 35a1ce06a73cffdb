package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/refundpanel/internal/apperrors"
	"github.com/nkiryanov/refundpanel/internal/models"
	"github.com/nkiryanov/refundpanel/internal/repository"
	"github.com/nkiryanov/refundpanel/internal/testutil"
)

func ptr[T any](v T) *T {
	return &v
}

func newRefund(identifier string, g models.Grant) models.Refund {
	return models.Refund{
		PlayerIdentifier: identifier,
		PlayerName:       "John Doe",
		AdminID:          "1001",
		AdminName:        "admin",
		Grant:            g,
		CreatedAt:        time.Now(),
	}
}

func TestRefunds(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, outerTx DBTX, fn func(pgx.Tx, repository.Storage)) {
		testutil.InTx(outerTx, t, func(innerTx pgx.Tx) {
			fn(innerTx, NewStorage(innerTx))
		})
	}

	t.Run("CreateRefund", func(t *testing.T) {
		t.Run("money", func(t *testing.T) {
			inTx(t, pg.Pool, func(_ pgx.Tx, storage repository.Storage) {
				refund := newRefund("ABC123", models.MoneyGrant{Amount: ptr(int64(5000))})
				refund.PlayerDiscord = ptr("42")
				refund.Reason = ptr("server crash")

				got, err := storage.Refund().CreateRefund(t.Context(), refund)

				require.NoError(t, err, "refund has to be created ok")
				require.NotZero(t, got.ID)
				require.Equal(t, "ABC123", got.PlayerIdentifier)
				require.Equal(t, "John Doe", got.PlayerName)
				require.Equal(t, ptr("42"), got.PlayerDiscord)
				require.Equal(t, "1001", got.AdminID)
				require.Equal(t, "admin", got.AdminName)
				require.Equal(t, models.MoneyGrant{Amount: ptr(int64(5000))}, got.Grant)
				require.Equal(t, ptr("server crash"), got.Reason)
				require.Equal(t, models.RefundStatusPending, got.Status)
				require.WithinDuration(t, refund.CreatedAt, got.CreatedAt, time.Millisecond)
				require.Nil(t, got.ClaimedAt, "new refund must not be claimed")
			})
		})

		t.Run("money without amount", func(t *testing.T) {
			inTx(t, pg.Pool, func(_ pgx.Tx, storage repository.Storage) {
				got, err := storage.Refund().CreateRefund(t.Context(), newRefund("ABC123", models.MoneyGrant{}))

				require.NoError(t, err)
				require.Equal(t, models.MoneyGrant{Amount: nil}, got.Grant)
			})
		})

		t.Run("item", func(t *testing.T) {
			inTx(t, pg.Pool, func(_ pgx.Tx, storage repository.Storage) {
				grant := models.ItemGrant{Name: "bread", Quantity: ptr(int64(10))}

				got, err := storage.Refund().CreateRefund(t.Context(), newRefund("ABC123", grant))

				require.NoError(t, err)
				require.Equal(t, grant, got.Grant)
			})
		})

		t.Run("vehicle", func(t *testing.T) {
			inTx(t, pg.Pool, func(_ pgx.Tx, storage repository.Storage) {
				for _, grant := range []models.VehicleGrant{{Model: "adder", Plate: "XYZ 123"}, {Model: "zentorno"}} {
					got, err := storage.Refund().CreateRefund(t.Context(), newRefund("ABC123", grant))

					require.NoError(t, err)
					require.Equal(t, grant, got.Grant)
				}
			})
		})

		t.Run("empty identifier fail", func(t *testing.T) {
			inTx(t, pg.Pool, func(_ pgx.Tx, storage repository.Storage) {
				_, err := storage.Refund().CreateRefund(t.Context(), newRefund("", models.MoneyGrant{}))

				require.Error(t, err)
				require.NotErrorIs(t, err, apperrors.ErrValidation, "constraint violation is not a client error")
				require.ErrorContains(t, err, "db error: constraint")
			})
		})

		t.Run("nil grant fail", func(t *testing.T) {
			inTx(t, pg.Pool, func(_ pgx.Tx, storage repository.Storage) {
				_, err := storage.Refund().CreateRefund(t.Context(), newRefund("ABC123", nil))

				require.ErrorIs(t, err, apperrors.ErrValidation)
			})
		})
	})

	t.Run("ClaimRefund", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			refund, err := storage.Refund().CreateRefund(t.Context(), newRefund("ABC123", models.MoneyGrant{Amount: ptr(int64(1))}))
			require.NoError(t, err)

			t.Run("claim ok", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					now := time.Now()

					got, err := storage.Refund().ClaimRefund(t.Context(), refund.ID, now)

					require.NoError(t, err)
					require.Equal(t, models.RefundStatusClaimed, got.Status)
					require.NotNil(t, got.ClaimedAt)
					require.WithinDuration(t, now, *got.ClaimedAt, time.Millisecond)
				})
			})

			t.Run("claim twice fail", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					first, err := storage.Refund().ClaimRefund(t.Context(), refund.ID, time.Now())
					require.NoError(t, err)

					_, err = storage.Refund().ClaimRefund(t.Context(), refund.ID, time.Now().Add(time.Hour))

					require.ErrorIs(t, err, apperrors.ErrRefundNotClaimable)

					stored, err := storage.Refund().GetRefund(t.Context(), refund.ID)
					require.NoError(t, err)
					require.WithinDuration(t, *first.ClaimedAt, *stored.ClaimedAt, 0, "second claim must not overwrite claimed_at")
				})
			})

			t.Run("claim not existed fail", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					_, err := storage.Refund().ClaimRefund(t.Context(), refund.ID+1000, time.Now())

					require.ErrorIs(t, err, apperrors.ErrRefundNotClaimable)
				})
			})
		})
	})

	t.Run("GetRefund not found", func(t *testing.T) {
		inTx(t, pg.Pool, func(_ pgx.Tx, storage repository.Storage) {
			_, err := storage.Refund().GetRefund(t.Context(), 999999)

			require.ErrorIs(t, err, apperrors.ErrRefundNotFound)
		})
	})

	t.Run("ListPending", func(t *testing.T) {
		inTx(t, pg.Pool, func(_ pgx.Tx, storage repository.Storage) {
			base := time.Now().Add(-time.Hour)
			var ids []int64
			for i := range 3 {
				r := newRefund("ABC123", models.MoneyGrant{Amount: ptr(int64(i + 1))})
				r.CreatedAt = base.Add(time.Duration(i) * time.Minute)
				created, err := storage.Refund().CreateRefund(t.Context(), r)
				require.NoError(t, err)
				ids = append(ids, created.ID)
			}
			_, err := storage.Refund().CreateRefund(t.Context(), newRefund("OTHER", models.MoneyGrant{}))
			require.NoError(t, err)
			_, err = storage.Refund().ClaimRefund(t.Context(), ids[1], time.Now())
			require.NoError(t, err)

			got, err := storage.Refund().ListPending(t.Context(), "ABC123")

			require.NoError(t, err)
			require.Len(t, got, 2, "claimed and foreign refunds must be skipped")
			require.Equal(t, ids[0], got[0].ID, "oldest first")
			require.Equal(t, ids[2], got[1].ID)
		})
	})
}
