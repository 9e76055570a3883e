package handler

import (
	"context"
	"net/http"

	"gamenight-api/internal/models"
	"gamenight-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type GameHandler struct {
	svc *service.GameService
	log *zap.SugaredLogger
}

func NewGameHandler(s *service.GameService, log *zap.SugaredLogger) *GameHandler {
	return &GameHandler{svc: s, log: log}
}

// @Summary Listar juegos
// @Tags games
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Game
// @Router /games [get]
func (h *GameHandler) List(w http.ResponseWriter, r *http.Request) {
	games, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

// @Summary Crear juego
// @Tags games
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body models.GameCreateRequest true "juego"
// @Success 201 {object} models.Game
// @Failure 400 {object} errorResponse
// @Router /games [post]
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}

	var req models.GameCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, r, err)
		return
	}

	g, err := h.svc.Create(r.Context(), sess.Identity, req)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// @Summary Obtener juego
// @Tags games
// @Produce json
// @Security BearerAuth
// @Param id path string true "game id"
// @Success 200 {object} models.Game
// @Failure 404 {object} errorResponse
// @Router /games/{id} [get]
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := objectIDParam(r, "id")
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	g, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// @Summary Marcar que un usuario tiene el juego
// @Tags games
// @Security BearerAuth
// @Param id path string true "game id"
// @Param uid path string true "user id"
// @Success 204
// @Failure 403 {object} errorResponse
// @Router /games/{id}/owners/{uid} [put]
func (h *GameHandler) AddOwner(w http.ResponseWriter, r *http.Request) {
	h.changeOwner(w, r, h.svc.AddOwner)
}

// @Summary Quitar a un usuario de los dueños del juego
// @Tags games
// @Security BearerAuth
// @Param id path string true "game id"
// @Param uid path string true "user id"
// @Success 204
// @Failure 403 {object} errorResponse
// @Router /games/{id}/owners/{uid} [delete]
func (h *GameHandler) RemoveOwner(w http.ResponseWriter, r *http.Request) {
	h.changeOwner(w, r, h.svc.RemoveOwner)
}

type ownerOp func(ctx context.Context, sess *models.Session, gameID primitive.ObjectID, uid string) error

func (h *GameHandler) changeOwner(w http.ResponseWriter, r *http.Request, op ownerOp) {
	sess, err := sessionFrom(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	id, err := objectIDParam(r, "id")
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	if err := op(r.Context(), sess, id, chi.URLParam(r, "uid")); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Summary Juegos de un usuario
// @Tags games
// @Produce json
// @Security BearerAuth
// @Param uid path string true "user id"
// @Success 200 {array} models.Game
// @Router /users/{uid}/games [get]
func (h *GameHandler) ListOwnedBy(w http.ResponseWriter, r *http.Request) {
	games, err := h.svc.ListOwnedBy(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}
