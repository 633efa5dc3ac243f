package handlers

import (
	"net/http"

	"github.com/Dosada05/esports-platform/middleware"
	"github.com/Dosada05/esports-platform/models"
	"github.com/Dosada05/esports-platform/services"
)

type ParticipantHandler struct {
	tournamentService   services.TournamentService
	registrationService services.RegistrationService
}

func NewParticipantHandler(ts services.TournamentService, rs services.RegistrationService) *ParticipantHandler {
	return &ParticipantHandler{tournamentService: ts, registrationService: rs}
}

type registerRequest struct {
	PaymentIntentID *string `json:"payment_intent_id"`
	TeamID          *int    `json:"team_id"`
}

// Register godoc
// @Summary Зарегистрироваться на турнир
// @Tags participants
// @Description Для платных турниров нужен payment_intent_id успешного платежа.
// @Accept json
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Param input body registerRequest false "Подтверждение оплаты"
// @Success 201 {object} map[string]interface{} "Участник создан"
// @Failure 400 {object} map[string]string "Платеж не подходит к турниру"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 402 {object} map[string]string "Нужна оплата взноса"
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Failure 409 {object} map[string]string "Уже зарегистрирован / турнир заполнен / регистрация закрыта"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/register [post]
func (h *ParticipantHandler) Register(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	// Тело необязательно: бесплатные турниры регистрируются пустым POST.
	var input registerRequest
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	participant, err := h.registrationService.Register(r.Context(), services.RegisterInput{
		TournamentID:    tournamentID,
		UserID:          currentUserID,
		TeamID:          input.TeamID,
		PaymentIntentID: input.PaymentIntentID,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"participant": participant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// List godoc
// @Summary Участники турнира
// @Tags participants
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /tournaments/{tournamentID}/participants [get]
func (h *ParticipantHandler) List(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participants, err := h.tournamentService.ListParticipants(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"participants": participants}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateStatus godoc
// @Summary Дисквалифицировать или восстановить участника
// @Tags participants
// @Accept json
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Param userID path int true "User ID"
// @Param input body object{status=string} true "active | disqualified"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/participants/{userID}/status [patch]
func (h *ParticipantHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
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

	var input struct {
		Status models.ParticipantStatus `json:"status"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participant, err := h.tournamentService.UpdateParticipantStatus(r.Context(), actor, tournamentID, userID, input.Status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"participant": participant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
