package handler

import (
	"net/http"
	"strconv"
	"time"

	"gamenight-api/internal/apperr"
	"gamenight-api/internal/models"
	"gamenight-api/internal/service"

	"go.uber.org/zap"
)

type SettingsHandler struct {
	svc *service.SettingsService
	log *zap.SugaredLogger
}

func NewSettingsHandler(s *service.SettingsService, log *zap.SugaredLogger) *SettingsHandler {
	return &SettingsHandler{svc: s, log: log}
}

type nextDatesResponse struct {
	Dates []time.Time `json:"dates"`
}

// @Summary Configuración de la recurrencia (admin)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Settings
// @Failure 403 {object} errorResponse
// @Router /admin/settings [get]
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Get(r.Context())
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// @Summary Actualizar configuración (admin)
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body models.SettingsUpdateRequest true "campos a cambiar"
// @Success 200 {object} models.Settings
// @Failure 400 {object} errorResponse
// @Router /admin/settings [put]
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}

	var req models.SettingsUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, r, err)
		return
	}

	s, err := h.svc.Update(r.Context(), sess.Identity, req)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	h.log.Infow("settings updated", "by", sess.Identity.UID, "rule", s.RecurrenceRule)
	writeJSON(w, http.StatusOK, s)
}

// @Summary Próximas fechas según la regla (admin)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param n query int false "cantidad (default: 6, máx 52)"
// @Success 200 {object} nextDatesResponse
// @Router /admin/settings/next-dates [get]
func (h *SettingsHandler) NextDates(w http.ResponseWriter, r *http.Request) {
	n := 6
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, h.log, r, apperr.Validation("n must be a number"))
			return
		}
		n = parsed
	}

	dates, err := h.svc.NextDates(r.Context(), time.Now(), n)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nextDatesResponse{Dates: dates})
}
