package handlers

import (
	"net/http"

	"github.com/Dosada05/esports-platform/services"
	"github.com/go-chi/chi/v5"
)

type AdminHandler struct {
	adminService services.AdminService
}

func NewAdminHandler(s services.AdminService) *AdminHandler {
	return &AdminHandler{adminService: s}
}

// Stats godoc
// @Summary Сводная статистика платформы
// @Tags admin
// @Produce json
// @Success 200 {object} models.PlatformStats
// @Failure 403 {object} map[string]string
// @Security BearerAuth
// @Router /admin/stats [get]
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.adminService.GetStats(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, stats, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Promote godoc
// @Summary Выдать роль администратора
// @Tags admin
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /admin/users/{username}/promote [post]
func (h *AdminHandler) Promote(w http.ResponseWriter, r *http.Request) {
	user, err := h.adminService.PromoteUser(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
