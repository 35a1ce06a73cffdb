package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/nkiryanov/refundpanel/internal/handlers/render"
	"github.com/nkiryanov/refundpanel/internal/logger"
)

// Refunds the player has not got in-game yet
func handleGamePendingRefunds(refundService refundService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identifier := strings.TrimSpace(r.URL.Query().Get("identifier"))
		if identifier == "" {
			render.ServiceError(w, "Player identifier is required", http.StatusBadRequest)
			return
		}

		refunds, err := refundService.ListPending(r.Context(), identifier)
		if err != nil {
			l.Error("Failed to list pending refunds", "player", identifier, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		res := make([]refundResponse, 0, len(refunds))
		for _, rf := range refunds {
			res = append(res, toRefundResponse(rf))
		}
		render.JSON(w, res)
	})
}

func handleGameClaimRefund(refundService refundService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refundID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil || refundID <= 0 {
			render.ServiceError(w, "Invalid refund id", http.StatusBadRequest)
			return
		}

		claimRefund(w, r, refundService, refundID, l)
	})
}
