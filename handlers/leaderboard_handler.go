package handlers

import (
	"net/http"
	"strings"

	"github.com/Dosada05/esports-platform/services"
)

type LeaderboardHandler struct {
	leaderboardService services.LeaderboardService
}

func NewLeaderboardHandler(ls services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: ls}
}

// Get godoc
// @Summary Рейтинг игроков
// @Tags leaderboard
// @Produce json
// @Param country query string false "Код страны или all (синоним: region)"
// @Param game query string false "ID игры или all (синонимы: game_id, gameId)"
// @Param limit query int false "Лимит (по умолчанию 100, максимум 500)"
// @Success 200 {object} map[string]interface{}
// @Router /leaderboard [get]
func (h *LeaderboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	gameID, err := gameFilter(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	country := r.URL.Query().Get("country")
	if country == "" {
		country = r.URL.Query().Get("region")
	}
	entries, err := h.leaderboardService.GetLeaderboard(r.Context(), services.LeaderboardQuery{
		Country: country,
		GameID:  gameID,
		Limit:   limit,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"leaderboard": entries}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// gameFilter читает game, game_id или gameId; "all" означает без фильтра.
func gameFilter(r *http.Request) (int, error) {
	for _, name := range []string{"game", "game_id", "gameId"} {
		v := r.URL.Query().Get(name)
		if v == "" {
			continue
		}
		if strings.EqualFold(v, "all") {
			return 0, nil
		}
		return queryInt(r, name, 0)
	}
	return 0, nil
}

// Top godoc
// @Summary Пятерка лучших игроков
// @Tags leaderboard
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /leaderboard/top [get]
func (h *LeaderboardHandler) Top(w http.ResponseWriter, r *http.Request) {
	entries, err := h.leaderboardService.GetTopPlayers(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"leaderboard": entries}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Adjust godoc
// @Summary Ручная корректировка очков (только admin)
// @Tags leaderboard
// @Accept json
// @Produce json
// @Param userID path int true "User ID"
// @Param input body services.AdjustPointsInput true "Изменение"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Security BearerAuth
// @Router /leaderboard/{userID}/adjust [post]
func (h *LeaderboardHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	userID, err := getIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actor, err := currentActor(r)
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input services.AdjustPointsInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	entry, err := h.leaderboardService.AdjustPoints(r.Context(), actor, userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"entry": entry}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
