package handler

import (
	"encoding/json"
	"net/http"

	"gamenight-api/internal/apperr"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindAlreadyExists, apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusBadGateway
	}
}

// writeError traduce el error de dominio a status + mensaje. Los errores del
// store se loguean completos y salen con un mensaje genérico.
func writeError(w http.ResponseWriter, log *zap.SugaredLogger, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)

	msg := err.Error()
	if kind == apperr.KindStore {
		log.Errorw("store failure", "method", r.Method, "path", r.URL.Path, "err", err)
		msg = "storage unavailable, try again later"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dest any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return apperr.Validation("invalid body: %v", err)
	}
	return nil
}

// objectIDParam lee un ObjectID hex del path.
func objectIDParam(r *http.Request, name string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("invalid %s", name)
	}
	return oid, nil
}
