package handlers

import (
	"net/http"

	"github.com/Dosada05/esports-platform/models"
)

// Countries godoc
// @Summary Справочник стран
// @Tags reference
// @Produce json
// @Success 200 {array} models.Country
// @Router /countries [get]
func Countries(w http.ResponseWriter, r *http.Request) {
	if err := writeJSON(w, http.StatusOK, models.Countries, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Regions godoc
// @Summary Справочник регионов
// @Tags reference
// @Produce json
// @Success 200 {array} models.Region
// @Router /regions [get]
func Regions(w http.ResponseWriter, r *http.Request) {
	if err := writeJSON(w, http.StatusOK, models.Regions, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
