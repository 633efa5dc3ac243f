package handlers

import (
	"net/http"

	"github.com/Dosada05/esports-platform/middleware"
	"github.com/Dosada05/esports-platform/services"
)

type PaymentHandler struct {
	registrationService services.RegistrationService
}

func NewPaymentHandler(rs services.RegistrationService) *PaymentHandler {
	return &PaymentHandler{registrationService: rs}
}

type createIntentRequest struct {
	TournamentID int `json:"tournament_id"`
}

// CreateIntent godoc
// @Summary Создать платеж на вступительный взнос
// @Tags payments
// @Accept json
// @Produce json
// @Param input body createIntentRequest true "Турнир"
// @Success 201 {object} payments.PaymentIntent
// @Failure 400 {object} map[string]string "Турнир бесплатный"
// @Failure 409 {object} map[string]string "Регистрация закрыта"
// @Failure 503 {object} map[string]string "Платежи не настроены"
// @Security BearerAuth
// @Router /payments/intents [post]
func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input createIntentRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.TournamentID <= 0 {
		failedValidationResponse(w, r, map[string]string{"tournament_id": "is required"})
		return
	}

	intent, err := h.registrationService.CreatePaymentIntent(r.Context(), currentUserID, input.TournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, intent, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
