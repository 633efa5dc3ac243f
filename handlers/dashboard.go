package handlers

import (
	"net/http"

	"github.com/Dosada05/esports-platform/middleware"
	"github.com/Dosada05/esports-platform/services"
)

type DashboardHandler struct {
	userService services.UserService
}

func NewDashboardHandler(s services.UserService) *DashboardHandler {
	return &DashboardHandler{userService: s}
}

// Dashboard godoc
// @Summary Главная страница игрока: профиль, рейтинг, турниры и матчи
// @Tags profile
// @Produce json
// @Success 200 {object} models.Dashboard
// @Security BearerAuth
// @Router /dashboard [get]
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	dashboard, err := h.userService.GetDashboard(r.Context(), currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, dashboard, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
