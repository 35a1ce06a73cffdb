package handlers

import (
	"net/http"

	"github.com/nkiryanov/refundpanel/internal/handlers/render"
	"github.com/nkiryanov/refundpanel/internal/logger"
	"github.com/nkiryanov/refundpanel/internal/models"
)

type playerResponse struct {
	Identifier string  `json:"identifier"`
	Name       string  `json:"name"`
	DiscordID  *string `json:"discord_id"`
}

func toPlayersResponse(players []models.Player) []playerResponse {
	res := make([]playerResponse, 0, len(players))
	for _, p := range players {
		res = append(res, playerResponse{Identifier: p.Identifier, Name: p.Name, DiscordID: p.DiscordID})
	}
	return res
}

func handleListPlayers(playerService playerService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		players, err := playerService.ListPlayers(r.Context())
		if err != nil {
			l.Error("Failed to list players", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, toPlayersResponse(players))
	})
}

func handleSearchPlayer(playerService playerService, l logger.Logger) http.Handler {
	type request struct {
		Search string `json:"search"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		players, err := playerService.SearchPlayers(r.Context(), data.Search)
		if err != nil {
			l.Error("Failed to search players", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, toPlayersResponse(players))
	})
}
