package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nkiryanov/refundpanel/internal/apperrors"
	"github.com/nkiryanov/refundpanel/internal/handlers/adminctx"
	"github.com/nkiryanov/refundpanel/internal/handlers/render"
	"github.com/nkiryanov/refundpanel/internal/logger"
	"github.com/nkiryanov/refundpanel/internal/models"
	"github.com/nkiryanov/refundpanel/internal/service/refund"
)

// Amount as panel sends it: JSON number or string, both parsed leniently
type amount struct {
	raw string
}

func (a *amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		a.raw = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		return json.Unmarshal(b, &a.raw)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("amount must be a number or a string: %w", err)
		}
		a.raw = integerPart(n)
		return nil
	}
}

// Integer part of JSON number, so 1e3 is 1000 and 12.5 is 12
// Empty if it does not fit into int64
func integerPart(n json.Number) string {
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}

	f, err := n.Float64()
	f = math.Trunc(f)
	if err != nil || f >= math.MaxInt64 || f < math.MinInt64 {
		return ""
	}
	return strconv.FormatInt(int64(f), 10)
}

func (a amount) value() *int64 {
	return refund.ParseAmount(a.raw)
}

// Refund with its grant flattened the way the panel shows it
type refundResponse struct {
	ID               int64      `json:"id"`
	PlayerIdentifier string     `json:"player_identifier"`
	PlayerName       string     `json:"player_name"`
	Type             string     `json:"type"`
	Amount           *int64     `json:"amount"`
	ItemName         *string    `json:"item_name"`
	VehicleModel     *string    `json:"vehicle_model"`
	VehiclePlate     *string    `json:"vehicle_plate"`
	Reason           *string    `json:"reason"`
	AdminName        string     `json:"admin_name"`
	Status           string     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	ClaimedAt        *time.Time `json:"claimed_at"`
}

func toRefundResponse(r models.Refund) refundResponse {
	res := refundResponse{
		ID:               r.ID,
		PlayerIdentifier: r.PlayerIdentifier,
		PlayerName:       r.PlayerName,
		Reason:           r.Reason,
		AdminName:        r.AdminName,
		Status:           r.Status,
		CreatedAt:        r.CreatedAt,
		ClaimedAt:        r.ClaimedAt,
	}

	switch g := r.Grant.(type) {
	case models.MoneyGrant:
		res.Type = g.Kind()
		res.Amount = g.Amount
	case models.ItemGrant:
		res.Type = g.Kind()
		res.Amount = g.Quantity
		res.ItemName = &g.Name
	case models.VehicleGrant:
		res.Type = g.Kind()
		res.VehicleModel = &g.Model
		if g.Plate != "" {
			res.VehiclePlate = &g.Plate
		}
	}

	return res
}

func handleCreateRefund(refundService refundService, l logger.Logger) http.Handler {
	type request struct {
		PlayerIdentifier string `json:"player_identifier" validate:"notblank"`
		PlayerName       string `json:"player_name"`
		PlayerDiscord    string `json:"player_discord"`
		Type             string `json:"type" validate:"required,oneof=money item vehicle"`
		Amount           amount `json:"amount"`
		ItemName         string `json:"item_name"`
		VehicleModel     string `json:"vehicle_model"`
		VehiclePlate     string `json:"vehicle_plate"`
		Reason           string `json:"reason"`
	}
	type response struct {
		Success bool  `json:"success"`
		ID      int64 `json:"id"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin, ok := adminctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		created, err := refundService.Create(r.Context(), models.RefundDraft{
			PlayerIdentifier: strings.TrimSpace(data.PlayerIdentifier),
			PlayerName:       strings.TrimSpace(data.PlayerName),
			PlayerDiscord:    strings.TrimSpace(data.PlayerDiscord),
			Kind:             data.Type,
			Amount:           data.Amount.value(),
			ItemName:         strings.TrimSpace(data.ItemName),
			VehicleModel:     strings.TrimSpace(data.VehicleModel),
			VehiclePlate:     strings.TrimSpace(data.VehiclePlate),
			Reason:           strings.TrimSpace(data.Reason),
		}, admin)

		switch {
		case err == nil:
			l.Info("Refund created", "refund_id", created.ID, "admin_id", admin.ExternalID, "player", created.PlayerIdentifier)
			render.JSON(w, response{Success: true, ID: created.ID})
		case errors.Is(err, apperrors.ErrValidation):
			render.ServiceError(w, err.Error(), http.StatusBadRequest)
		default:
			l.Error("Failed to create refund", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleListLogs(refundService refundService, l logger.Logger) http.Handler {
	type entry struct {
		refundResponse
		Action    string    `json:"action"`
		Details   string    `json:"details"`
		Timestamp time.Time `json:"timestamp"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entries, err := refundService.ListAuditTrail(r.Context(), refund.MaxAuditTrail)
		if err != nil {
			l.Error("Failed to list audit trail", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		res := make([]entry, 0, len(entries))
		for _, e := range entries {
			res = append(res, entry{
				refundResponse: toRefundResponse(e.Refund),
				Action:         e.Event.Action,
				Details:        e.Event.Details,
				Timestamp:      e.Event.Timestamp,
			})
		}
		render.JSON(w, res)
	})
}

type claimResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Both panel and game server claim the same way
// Not claimable refund is 500 as the panel always expected
func claimRefund(w http.ResponseWriter, r *http.Request, refundService refundService, refundID int64, l logger.Logger) {
	claimed, err := refundService.Claim(r.Context(), refundID)

	switch {
	case err == nil:
		l.Info("Refund claimed", "refund_id", claimed.ID, "player", claimed.PlayerIdentifier)
		render.JSON(w, claimResponse{Success: true})
	case errors.Is(err, apperrors.ErrRefundNotClaimable):
		l.Warn("Refund not claimable", "refund_id", refundID)
		render.JSONWithStatus(w, claimResponse{Success: false, Error: "Refund not found or already claimed"}, http.StatusInternalServerError)
	default:
		l.Error("Failed to claim refund", "refund_id", refundID, "error", err)
		render.JSONWithStatus(w, claimResponse{Success: false, Error: "Internal server error"}, http.StatusInternalServerError)
	}
}

func handleClaimRefund(refundService refundService, l logger.Logger) http.Handler {
	type request struct {
		// Unknown, zero or missing id is answered the same way as already claimed refund
		RefundID int64 `json:"refund_id"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		claimRefund(w, r, refundService, data.RefundID, l)
	})
}
