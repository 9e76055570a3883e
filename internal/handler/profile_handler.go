package handler

import (
	"encoding/json"
	"net/http"

	"gamenight-api/internal/apperr"
	"gamenight-api/internal/models"
	"gamenight-api/internal/service"

	"go.uber.org/zap"
)

type ProfileHandler struct {
	svc *service.ProfileService
	log *zap.SugaredLogger
}

func NewProfileHandler(s *service.ProfileService, log *zap.SugaredLogger) *ProfileHandler {
	return &ProfileHandler{svc: s, log: log}
}

// favoriteGameId llega como RawMessage para distinguir "ausente" de null.
type profilePatchRequest struct {
	FavoriteGameID     json.RawMessage `json:"favoriteGameId,omitempty" swaggertype:"string"`
	GameNightsAttended *int            `json:"gameNightsAttended,omitempty"`
}

type favoriteGameRequest struct {
	GameID *string `json:"gameId"`
}

// @Summary Mi perfil (se crea en la primera visita)
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UserProfile
// @Router /me/profile [get]
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	p, err := h.svc.GetOrCreate(r.Context(), sess.Identity)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// @Summary Actualizar mi perfil
// @Description Solo favoriteGameId y gameNightsAttended son editables.
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body profilePatchRequest true "campos a cambiar"
// @Success 200 {object} models.UserProfile
// @Failure 400 {object} errorResponse
// @Router /me/profile [patch]
func (h *ProfileHandler) Patch(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}

	var req profilePatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, r, err)
		return
	}

	upd, err := req.toUpdate()
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	if upd.Empty() {
		writeError(w, h.log, r, apperr.Validation("nothing to update"))
		return
	}

	// el perfil tiene que existir antes del update
	if _, err := h.svc.GetOrCreate(r.Context(), sess.Identity); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	p, err := h.svc.Update(r.Context(), sess.Identity.UID, upd)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (req profilePatchRequest) toUpdate() (models.ProfileUpdate, error) {
	upd := models.ProfileUpdate{GameNightsAttended: req.GameNightsAttended}
	if len(req.FavoriteGameID) > 0 {
		upd.SetFavorite = true
		if string(req.FavoriteGameID) != "null" {
			var id string
			if err := json.Unmarshal(req.FavoriteGameID, &id); err != nil {
				return upd, apperr.Validation("favoriteGameId must be a string or null")
			}
			upd.FavoriteGameID = &id
		}
	}
	return upd, nil
}

// @Summary Elegir (o borrar con null) mi juego favorito
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body favoriteGameRequest true "game id o null"
// @Success 200 {object} models.UserProfile
// @Failure 404 {object} errorResponse
// @Router /me/profile/favorite-game [put]
func (h *ProfileHandler) SetFavoriteGame(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}

	var req favoriteGameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, r, err)
		return
	}

	if _, err := h.svc.GetOrCreate(r.Context(), sess.Identity); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	p, err := h.svc.SetFavoriteGame(r.Context(), sess.Identity.UID, req.GameID)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
