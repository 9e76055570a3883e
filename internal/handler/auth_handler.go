package handler

import (
	"net/http"
	"time"

	"gamenight-api/internal/models"
	"gamenight-api/internal/service"

	"go.uber.org/zap"
)

type AuthHandler struct {
	svc *service.AuthService
	log *zap.SugaredLogger
}

func NewAuthHandler(s *service.AuthService, log *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{svc: s, log: log}
}

type signInRequest struct {
	IDToken string `json:"idToken"`
}

type sessionResponse struct {
	Token     string          `json:"token,omitempty"`
	ExpiresAt time.Time       `json:"expiresAt"`
	User      models.Identity `json:"user"`
	Admin     bool            `json:"admin"`
}

func toSessionResponse(token string, s *models.Session) sessionResponse {
	return sessionResponse{
		Token:     token,
		ExpiresAt: s.ExpiresAt,
		User:      s.Identity,
		Admin:     s.Admin,
	}
}

// @Summary Iniciar sesión con el token del proveedor
// @Tags auth
// @Accept json
// @Produce json
// @Param body body signInRequest true "ID token del proveedor"
// @Success 201 {object} sessionResponse
// @Failure 401 {object} errorResponse
// @Router /auth/session [post]
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, r, err)
		return
	}

	token, sess, err := h.svc.SignIn(r.Context(), req.IDToken)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}

	h.log.Infow("sign in", "uid", sess.Identity.UID, "admin", sess.Admin)
	writeJSON(w, http.StatusCreated, toSessionResponse(token, sess))
}

// @Summary Sesión actual
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} sessionResponse
// @Failure 401 {object} errorResponse
// @Router /auth/session [get]
func (h *AuthHandler) Current(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse("", sess))
}

// @Summary Cerrar sesión
// @Tags auth
// @Security BearerAuth
// @Success 204
// @Router /auth/session [delete]
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	if err := h.svc.SignOut(r.Context(), sess); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
