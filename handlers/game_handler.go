package handlers

import (
	"net/http"

	"github.com/Dosada05/esports-platform/models"
	"github.com/Dosada05/esports-platform/services"
)

type GameHandler struct {
	gameService services.GameService
}

func NewGameHandler(gameService services.GameService) *GameHandler {
	return &GameHandler{gameService: gameService}
}

// List godoc
// @Summary Каталог игр
// @Tags games
// @Produce json
// @Param genre query string false "Жанр или all"
// @Param sort query string false "newest | popular | tournaments | prizepool"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /games [get]
func (h *GameHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	games, err := h.gameService.ListGames(r.Context(), query.Get("genre"), models.GameSort(query.Get("sort")))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"games": games}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListNames godoc
// @Summary Короткий список игр для выпадающих списков
// @Tags games
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /games/list [get]
func (h *GameHandler) ListNames(w http.ResponseWriter, r *http.Request) {
	games, err := h.gameService.ListGameNames(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"games": games}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListGenres godoc
// @Summary Жанры игр
// @Tags games
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /games/genres [get]
func (h *GameHandler) ListGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.gameService.ListGenres(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"genres": genres}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Get godoc
// @Summary Игра по ID
// @Tags games
// @Produce json
// @Param gameID path int true "Game ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /games/{gameID} [get]
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	game, err := h.gameService.GetGame(r.Context(), gameID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"game": game}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Create godoc
// @Summary Добавить игру (только admin)
// @Tags games
// @Accept json
// @Produce json
// @Param input body services.CreateGameInput true "Игра"
// @Success 201 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /games [post]
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateGameInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	game, err := h.gameService.CreateGame(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"game": game}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UploadImage godoc
// @Summary Загрузить обложку игры (только admin)
// @Tags games
// @Accept multipart/form-data
// @Produce json
// @Param gameID path int true "Game ID"
// @Param image formData file true "Картинка"
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]string
// @Security BearerAuth
// @Router /games/{gameID}/image [post]
func (h *GameHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "gameID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	file, contentType, err := readImage(w, r, "image")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	defer file.Close()

	game, err := h.gameService.UploadGameImage(r.Context(), gameID, contentType, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"game": game}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
